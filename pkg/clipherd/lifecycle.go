package clipherd

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention defaults.
const (
	// DefaultPostedRetention is how long a posted item's record is kept
	// before being purged.
	DefaultPostedRetention = 24 * time.Hour

	// DefaultFailedRetention is how long a failed item's record is kept.
	DefaultFailedRetention = 24 * time.Hour

	// DefaultRejectedRetention is the fallback rejected-content lifespan
	// for accounts that do not configure one.
	DefaultRejectedRetention = 24 * time.Hour

	// DefaultFingerprintRetention bounds the DuplicateIndex: fingerprints
	// older than this are evicted, since perceptual similarity to very old
	// content stops mattering.
	DefaultFingerprintRetention = 180 * 24 * time.Hour

	// DefaultBlobRetention bounds storage cost: any blob held by an item
	// that is no longer in an active state is deleted once older than this,
	// independent of the posting state machine.
	DefaultBlobRetention = 24 * time.Hour

	// DefaultSweepSpec runs the retention sweep at the top of every hour.
	DefaultSweepSpec = "0 * * * *"
)

// RetentionPolicy configures the LifecycleManager's expiry windows.
// Zero-valued fields fall back to the package defaults.
type RetentionPolicy struct {
	Posted      time.Duration
	Failed      time.Duration
	Rejected    time.Duration
	Fingerprint time.Duration
	Blob        time.Duration
}

func (p RetentionPolicy) withDefaults() RetentionPolicy {
	if p.Posted <= 0 {
		p.Posted = DefaultPostedRetention
	}
	if p.Failed <= 0 {
		p.Failed = DefaultFailedRetention
	}
	if p.Rejected <= 0 {
		p.Rejected = DefaultRejectedRetention
	}
	if p.Fingerprint <= 0 {
		p.Fingerprint = DefaultFingerprintRetention
	}
	if p.Blob <= 0 {
		p.Blob = DefaultBlobRetention
	}
	return p
}

// LifecycleManager retires blobs as items reach terminal states and sweeps
// expired records on a cron cadence. It is the only component besides an
// item's owning supervisor that mutates items, and only for terminal
// cleanup.
type LifecycleManager struct {
	repo   Repository
	blobs  BlobStore
	index  *DuplicateIndex
	policy RetentionPolicy
	logger *slog.Logger
	now    func() time.Time

	cron    *cron.Cron
	sweepID cron.EntryID
}

// NewLifecycleManager builds a manager with the given retention policy.
func NewLifecycleManager(repo Repository, blobs BlobStore, index *DuplicateIndex, policy RetentionPolicy, logger *slog.Logger) *LifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleManager{
		repo:   repo,
		blobs:  blobs,
		index:  index,
		policy: policy.withDefaults(),
		logger: logger.With("component", "lifecycle"),
		now:    time.Now,
	}
}

// Retire releases an item's stored blob and clears the storage reference.
// Blob deletion is idempotent, so retiring an already-retired item is
// harmless. Called with items in terminal states.
func (m *LifecycleManager) Retire(ctx context.Context, item *ContentItem) {
	if item.StorageKey == "" {
		return
	}
	key := item.StorageKey
	if err := m.blobs.Delete(ctx, key); err != nil {
		m.logger.Warn("blob delete failed, sweep will retry", "item", item.ID, "key", key, "error", err)
		return
	}
	item.StorageKey = ""
	item.UpdatedAt = m.now()
	if err := m.repo.UpdateItem(ctx, item); err != nil {
		m.logger.Warn("could not clear storage reference", "item", item.ID, "error", err)
		return
	}
	m.logger.Info("blob retired", "item", item.ID, "key", key)
}

// Start schedules the retention sweep. An empty spec uses the default
// hourly cadence.
func (m *LifecycleManager) Start(spec string) error {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	m.cron = cron.New()
	id, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := m.Sweep(ctx); err != nil {
			m.logger.Error("retention sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	m.sweepID = id
	m.cron.Start()
	m.logger.Info("retention sweep scheduled", "spec", spec)
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (m *LifecycleManager) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Sweep enforces the retention policy across every account: orphaned blobs
// are deleted, expired terminal records are purged, and old fingerprints
// are evicted from the shared index and the repository.
func (m *LifecycleManager) Sweep(ctx context.Context) error {
	accounts, err := m.repo.ListAccounts(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	for _, acct := range accounts {
		if err := m.sweepAccount(ctx, acct, now); err != nil {
			m.logger.Warn("account sweep failed", "account", acct.Account, "error", err)
		}
	}

	cutoff := now.Add(-m.policy.Fingerprint)
	if evicted := m.index.EvictBefore(cutoff); evicted > 0 {
		m.logger.Info("evicted old fingerprints", "count", evicted)
	}
	if _, err := m.repo.DeletePublishedFingerprintsBefore(ctx, cutoff); err != nil {
		return err
	}
	return nil
}

func (m *LifecycleManager) sweepAccount(ctx context.Context, acct *AccountState, now time.Time) error {
	items, err := m.repo.ListItems(ctx, acct.Account)
	if err != nil {
		return err
	}

	rejectedTTL := acct.Settings.RejectedLifespan
	if rejectedTTL <= 0 {
		rejectedTTL = m.policy.Rejected
	}

	for _, item := range items {
		// Stale blob on a non-active item: delete proactively, whatever
		// the state machine is doing.
		if item.StorageKey != "" && !item.Status.Active() &&
			now.Sub(item.UpdatedAt) > m.policy.Blob {
			m.Retire(ctx, item)
		}

		var expired bool
		switch item.Status {
		case ItemStatusPosted:
			expired = item.PostedAt != nil && now.Sub(*item.PostedAt) > m.policy.Posted
		case ItemStatusFailed:
			expired = item.FailedAt != nil && now.Sub(*item.FailedAt) > m.policy.Failed
		case ItemStatusRejected:
			expired = item.RejectedAt != nil && now.Sub(*item.RejectedAt) > rejectedTTL
		}
		if !expired {
			continue
		}

		if item.StorageKey != "" {
			m.Retire(ctx, item)
			if item.StorageKey != "" {
				continue // retirement failed, retry next sweep
			}
		}
		if err := m.repo.PurgeItem(ctx, item.ID); err != nil {
			m.logger.Warn("could not purge expired item", "item", item.ID, "error", err)
			continue
		}
		m.logger.Info("purged expired item", "item", item.ID, "status", item.Status)
	}
	return nil
}
