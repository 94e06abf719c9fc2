package clipherd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Supervisor loop defaults.
const (
	// DefaultHeartbeat bounds how long a supervisor sleeps between decision
	// points, so externally-triggered events are noticed promptly even when
	// no release is imminent.
	DefaultHeartbeat = 15 * time.Second

	// DefaultRetryAttempts is how many times an infrastructure operation
	// (repository, blob store) is retried before the account halts.
	DefaultRetryAttempts = 3

	// DefaultRetryBase is the initial backoff delay between infrastructure
	// retries; it doubles per attempt.
	DefaultRetryBase = 250 * time.Millisecond
)

// AccountSupervisor drives one account: it owns the account's queue and
// health state, applies review decisions, runs discovery, and posts queued
// items when their release time arrives. It is the only writer to the
// account's state; everything it owns is mutated from its single Run loop.
type AccountSupervisor struct {
	account string
	state   *AccountState
	queue   *AccountQueue
	sched   *Scheduler

	repo      Repository
	index     *DuplicateIndex
	blobs     BlobStore
	scraper   Scraper
	poster    Poster
	frames    FrameExtractor
	hasher    PerceptualHasher
	lifecycle *LifecycleManager
	events    *notifier
	logger    *slog.Logger

	heartbeat     time.Duration
	retryAttempts int
	retryBase     time.Duration
	discoverEvery time.Duration
	now           func() time.Time

	wake         chan struct{}
	lastDiscover time.Time
}

// supervisorDeps bundles the collaborators a supervisor is built from.
type supervisorDeps struct {
	repo      Repository
	index     *DuplicateIndex
	blobs     BlobStore
	scraper   Scraper
	poster    Poster
	frames    FrameExtractor
	hasher    PerceptualHasher
	lifecycle *LifecycleManager
	sink      EventSink
	logger    *slog.Logger

	heartbeat     time.Duration
	retryAttempts int
	retryBase     time.Duration
	discoverEvery time.Duration
	now           func() time.Time
	randFloat     func() float64
}

func newAccountSupervisor(state *AccountState, deps supervisorDeps) (*AccountSupervisor, error) {
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("account", state.Account)

	now := deps.now
	if now == nil {
		now = time.Now
	}

	schedOpts := []SchedulerOption{WithSchedulerClock(now)}
	if deps.randFloat != nil {
		schedOpts = append(schedOpts, WithSchedulerRand(deps.randFloat))
	}
	sched, err := NewScheduler(state.Settings.PostingInterval, state.Settings.JitterFraction, schedOpts...)
	if err != nil {
		return nil, &AccountError{Account: state.Account, Op: "configure", Err: err}
	}

	s := &AccountSupervisor{
		account:       state.Account,
		state:         state,
		queue:         NewAccountQueue(),
		sched:         sched,
		repo:          deps.repo,
		index:         deps.index,
		blobs:         deps.blobs,
		scraper:       deps.scraper,
		poster:        deps.poster,
		frames:        deps.frames,
		hasher:        deps.hasher,
		lifecycle:     deps.lifecycle,
		events:        newNotifier(deps.sink, logger),
		logger:        logger,
		heartbeat:     deps.heartbeat,
		retryAttempts: deps.retryAttempts,
		retryBase:     deps.retryBase,
		discoverEvery: deps.discoverEvery,
		now:           now,
		wake:          make(chan struct{}, 1),
	}
	if s.heartbeat <= 0 {
		s.heartbeat = DefaultHeartbeat
	}
	if s.retryAttempts <= 0 {
		s.retryAttempts = DefaultRetryAttempts
	}
	if s.retryBase <= 0 {
		s.retryBase = DefaultRetryBase
	}
	return s, nil
}

// Wake nudges the supervisor out of its sleep so a freshly enqueued command
// is handled before the next heartbeat. Safe to call from any goroutine.
func (s *AccountSupervisor) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run executes the supervisor loop until the context is cancelled. Each
// iteration drains durable commands, runs discovery if due, releases the
// queue head when its time has come, then sleeps until the earlier of the
// next release and the heartbeat.
func (s *AccountSupervisor) Run(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return &AccountError{Account: s.account, Op: "restore", Err: err}
	}
	s.logger.Info("supervisor started",
		"health", s.state.Health,
		"queued", len(s.queue.Queued()),
		"pending_review", len(s.queue.PendingReview()))

	for {
		s.processCommands(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.discoverIfDue(ctx)

		wait := s.step(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// restore rebuilds the in-memory queue from the repository. Items caught
// mid-posting by a crash are rolled back to queued; they keep their queue
// position and go out first once the account is healthy again.
func (s *AccountSupervisor) restore(ctx context.Context) error {
	items, err := s.repo.ListItems(ctx, s.account,
		ItemStatusPendingReview, ItemStatusQueued, ItemStatusPosting)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Status == ItemStatusPosting {
			item.Status = ItemStatusQueued
			item.ReleaseAt = nil
			item.UpdatedAt = s.now()
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return err
			}
			s.logger.Warn("rolled back item caught mid-posting", "item", item.ID)
		}
		s.queue.Push(item)
	}
	s.redriveUnfinished(ctx)
	return nil
}

// redriveUnfinished picks up items stranded before review by an outage mid
// ingest and runs them through the rest of the pipeline. Fingerprinting and
// the duplicate gate are idempotent per source ref, so replaying them is
// safe; nothing is left sitting in a pre-review status indefinitely.
func (s *AccountSupervisor) redriveUnfinished(ctx context.Context) {
	items, err := s.repo.ListItems(ctx, s.account,
		ItemStatusDiscovered, ItemStatusFingerprinted)
	if err != nil {
		s.logger.Warn("could not list unfinished items", "error", err)
		return
	}
	for _, item := range items {
		s.logger.Info("re-driving unfinished item", "item", item.ID, "status", item.Status)
		s.completeIngest(ctx, item)
	}
}

// processCommands handles every durably recorded command for this account,
// in arrival order, marking each complete afterwards. Handlers are
// idempotent so a crash between handling and completion only causes a
// harmless replay.
func (s *AccountSupervisor) processCommands(ctx context.Context) {
	var cmds []*Command
	err := s.withRetry(ctx, "load commands", func() error {
		var err error
		cmds, err = s.repo.PendingCommands(ctx, s.account)
		return err
	})
	if err != nil {
		return
	}

	for _, cmd := range cmds {
		if ctx.Err() != nil {
			return
		}
		s.handleCommand(ctx, cmd)
		if err := s.withRetry(ctx, "complete command", func() error {
			return s.repo.CompleteCommand(ctx, cmd.ID)
		}); err != nil {
			return
		}
	}
}

func (s *AccountSupervisor) handleCommand(ctx context.Context, cmd *Command) {
	switch cmd.Kind {
	case CommandDiscover:
		if cmd.Discovery == nil {
			s.logger.Warn("discover command without payload", "command", cmd.ID)
			return
		}
		s.ingest(ctx, *cmd.Discovery)
	case CommandAccept:
		s.acceptItem(ctx, cmd)
	case CommandReject:
		s.rejectItem(ctx, cmd)
	case CommandEdit:
		s.editItem(ctx, cmd)
	case CommandResume:
		s.resume(ctx)
	case CommandPause:
		s.pause(ctx)
	default:
		s.logger.Warn("unknown command kind", "command", cmd.ID, "kind", cmd.Kind)
	}
}

// ingest runs one discovered candidate through fingerprinting and the
// duplicate gate. Already-known references are skipped, which makes the
// discover command idempotent.
func (s *AccountSupervisor) ingest(ctx context.Context, d Discovery) {
	if s.index.Contains(d.SourceRef) || s.queue.ContainsRef(d.SourceRef) {
		return
	}

	now := s.now()
	item := &ContentItem{
		ID:             uuid.New(),
		Account:        s.account,
		SourceRef:      d.SourceRef,
		OriginalAuthor: d.OriginalAuthor,
		Caption:        d.Caption,
		Hashtags:       d.Hashtags,
		Status:         ItemStatusDiscovered,
		DiscoveredAt:   now,
		UpdatedAt:      now,
	}
	if err := s.withRetry(ctx, "create item", func() error {
		return s.repo.CreateItem(ctx, item)
	}); err != nil {
		return
	}

	s.completeIngest(ctx, item)
}

// completeIngest carries an item from discovery through fingerprinting and
// the duplicate gate. Every step keys off durable item state, so it can be
// re-run against an item stranded mid-ingest by an infrastructure outage.
func (s *AccountSupervisor) completeIngest(ctx context.Context, item *ContentItem) {
	if item.StorageKey == "" {
		video, err := s.scraper.Fetch(ctx, item.SourceRef)
		if err != nil {
			if IsRecoverable(err) {
				s.restrict(ctx, err.Error())
				return
			}
			s.failItem(ctx, item, fmt.Errorf("fetch %s: %w", item.SourceRef, err))
			return
		}
		defer video.Close()

		key := fmt.Sprintf("%s/%s.mp4", s.account, item.SourceRef)
		if err := s.withRetry(ctx, "upload blob", func() error {
			return s.blobs.Upload(ctx, key, video)
		}); err != nil {
			return
		}
		item.StorageKey = key
	}

	if item.Status == ItemStatusDiscovered {
		set, err := s.fingerprint(ctx, item.StorageKey)
		if err != nil {
			s.failItem(ctx, item, err)
			return
		}
		item.Fingerprints = set
		item.Status = ItemStatusFingerprinted
		item.UpdatedAt = s.now()
		if err := s.persistItem(ctx, item); err != nil {
			return
		}
	}

	maxDist := s.state.Settings.MaxHammingDistance
	if maxDist <= 0 {
		maxDist = DefaultMaxHammingDistance
	}
	if s.index.IsDuplicate(item.Fingerprints) || s.queue.ContainsSimilar(item.Fingerprints, maxDist) {
		rejectedAt := s.now()
		item.Status = ItemStatusRejected
		item.RejectedAt = &rejectedAt
		item.UpdatedAt = rejectedAt
		if err := s.persistItem(ctx, item); err != nil {
			return
		}
		s.lifecycle.Retire(ctx, item)
		s.events.itemRejected(ctx, item, true)
		s.logger.Info("rejected duplicate candidate", "item", item.ID, "source", item.SourceRef)
		return
	}

	item.Status = ItemStatusPendingReview
	item.UpdatedAt = s.now()
	if err := s.persistItem(ctx, item); err != nil {
		return
	}
	s.queue.Push(item)

	previewURL, err := s.blobs.GetDownloadURL(ctx, item.StorageKey)
	if err != nil {
		s.logger.Warn("no preview url for pending item", "item", item.ID, "error", err)
		previewURL = ""
	}
	s.events.itemPendingReview(ctx, item, previewURL)
}

// fingerprint samples the stored blob and hashes each frame. The set is
// computed exactly once per item and never recomputed.
func (s *AccountSupervisor) fingerprint(ctx context.Context, key string) (FingerprintSet, error) {
	blob, err := s.blobs.Download(ctx, key)
	if err != nil {
		return FingerprintSet{}, &StorageError{Key: key, Op: "download", Err: err}
	}
	defer blob.Close()

	frames, err := s.frames.Sample(ctx, blob)
	if err != nil {
		return FingerprintSet{}, &UnrecoverableContentError{Reason: "frame sampling failed", Err: err}
	}
	if len(frames) != FrameSamples {
		return FingerprintSet{}, &UnrecoverableContentError{
			Reason: fmt.Sprintf("expected %d sampled frames, got %d", FrameSamples, len(frames)),
		}
	}

	var set FingerprintSet
	for i, frame := range frames {
		set[i] = s.hasher.Hash(frame)
	}
	return set, nil
}

func (s *AccountSupervisor) acceptItem(ctx context.Context, cmd *Command) {
	item := s.queue.Get(cmd.ItemID)
	if item == nil || item.Status != ItemStatusPendingReview {
		// Idempotent: already accepted, rejected, or unknown.
		return
	}
	queuedAt := s.now()
	item.Status = ItemStatusQueued
	item.QueuedAt = &queuedAt
	item.UpdatedAt = queuedAt
	if err := s.persistItem(ctx, item); err != nil {
		return
	}
	s.logger.Info("item accepted", "item", item.ID, "source", item.SourceRef)
}

func (s *AccountSupervisor) rejectItem(ctx context.Context, cmd *Command) {
	item := s.queue.Get(cmd.ItemID)
	if item == nil || item.Status != ItemStatusPendingReview {
		return
	}
	rejectedAt := s.now()
	item.Status = ItemStatusRejected
	item.RejectedAt = &rejectedAt
	item.UpdatedAt = rejectedAt
	if err := s.persistItem(ctx, item); err != nil {
		return
	}
	s.queue.Remove(item.ID)
	s.lifecycle.Retire(ctx, item)
	s.events.itemRejected(ctx, item, false)
	s.logger.Info("item rejected", "item", item.ID, "source", item.SourceRef)
}

// editItem applies a metadata-only edit. The item stays in pending review
// and its fingerprints are untouched: edits never alter video content.
func (s *AccountSupervisor) editItem(ctx context.Context, cmd *Command) {
	item := s.queue.Get(cmd.ItemID)
	if item == nil || item.Status != ItemStatusPendingReview {
		return
	}
	item.Caption = cmd.Caption
	item.Hashtags = cmd.Hashtags
	item.UpdatedAt = s.now()
	if err := s.persistItem(ctx, item); err != nil {
		return
	}
	s.logger.Info("item edited", "item", item.ID)
}

func (s *AccountSupervisor) pause(ctx context.Context) {
	if s.state.Paused {
		return
	}
	s.state.Paused = true
	s.persistState(ctx)
	s.logger.Info("account paused")
}

// resume is the operator's acknowledgment that the blocking condition was
// cleared manually. The supervisor moves to awaiting_resume, re-validates
// access, and only then returns to active. The next release is computed
// from the resume moment; missed slots are not backfilled.
func (s *AccountSupervisor) resume(ctx context.Context) {
	s.state.Paused = false
	s.state.Halted = false

	if s.state.Health == HealthActive {
		s.persistState(ctx)
		// A halt can strand items mid-ingest without touching health.
		s.redriveUnfinished(ctx)
		return
	}

	if s.state.Health == HealthRestricted {
		if err := canTransitionHealth(s.state.Health, HealthAwaitingResume); err != nil {
			s.logger.Error("health transition refused", "error", err)
			return
		}
		s.state.Health = HealthAwaitingResume
		s.persistState(ctx)
	}

	if err := s.validateAccess(ctx); err != nil {
		// Still blocked: back to restricted, refresh the retry timestamp,
		// no repeat notification.
		now := s.now()
		s.state.Health = HealthRestricted
		s.state.LastFailureAt = &now
		s.persistState(ctx)
		s.logger.Warn("re-validation failed, account stays restricted", "error", err)
		return
	}

	now := s.now()
	s.state.Health = HealthActive
	s.state.LastRelease = now
	s.persistState(ctx)

	if head := s.queue.Head(); head != nil && head.ReleaseAt != nil {
		head.ReleaseAt = nil
		head.UpdatedAt = now
		s.persistItem(ctx, head)
	}

	s.events.accountResumed(ctx, s.account)
	s.logger.Info("account active again")

	s.redriveUnfinished(ctx)
}

// validateAccess probes the account through the scraper. Discovery doubles
// as the probe because it exercises the same session the poster uses.
func (s *AccountSupervisor) validateAccess(ctx context.Context) error {
	if s.scraper == nil {
		return nil
	}
	_, err := s.scraper.Discover(ctx, s.account)
	return err
}

// discoverIfDue pulls fresh candidates from the scraper and records each
// unseen reference as a durable discover command.
func (s *AccountSupervisor) discoverIfDue(ctx context.Context) {
	if s.scraper == nil || s.discoverEvery <= 0 {
		return
	}
	if s.state.Halted || s.state.Paused || s.state.Health != HealthActive {
		return
	}
	now := s.now()
	if !s.lastDiscover.IsZero() && now.Sub(s.lastDiscover) < s.discoverEvery {
		return
	}
	s.lastDiscover = now

	found, err := s.scraper.Discover(ctx, s.account)
	if err != nil {
		if IsRecoverable(err) {
			s.restrict(ctx, err.Error())
		} else {
			s.logger.Warn("discovery failed", "error", err)
		}
		return
	}

	enqueued := 0
	for _, raw := range found {
		if s.index.Contains(raw.Ref) || s.queue.ContainsRef(raw.Ref) {
			continue
		}
		cmd := &Command{
			ID:      uuid.New(),
			Account: s.account,
			Kind:    CommandDiscover,
			Discovery: &Discovery{
				SourceRef:      raw.Ref,
				OriginalAuthor: raw.OriginalAuthor,
				Caption:        raw.Caption,
				Hashtags:       raw.Hashtags,
			},
			CreatedAt: now,
		}
		if err := s.repo.EnqueueCommand(ctx, cmd); err != nil {
			s.logger.Warn("could not record discovery", "source", raw.Ref, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.logger.Info("discovered new candidates", "count", enqueued)
		s.Wake()
	}
}

// step makes one posting decision and returns how long to sleep: the time
// until the head's release, capped by the heartbeat.
func (s *AccountSupervisor) step(ctx context.Context) time.Duration {
	s.events.checkQueueLow(ctx, s.account, s.queue.Remaining(), s.state.Settings.QueueLowThreshold)

	if s.state.Halted || s.state.Paused || s.state.Health != HealthActive {
		return s.heartbeat
	}

	head := s.queue.Head()
	if head == nil {
		return s.heartbeat
	}

	// The release time is assigned when the item becomes the queue's next
	// candidate, not when it was accepted.
	if head.ReleaseAt == nil {
		release := s.sched.NextRelease(s.state.LastRelease)
		head.ReleaseAt = &release
		head.UpdatedAt = s.now()
		if err := s.persistItem(ctx, head); err != nil {
			return s.heartbeat
		}
		s.logger.Info("release scheduled", "item", head.ID, "release_at", release)
	}

	if wait := s.sched.Until(*head.ReleaseAt); wait > 0 {
		return min(wait, s.heartbeat)
	}

	s.post(ctx, head)
	return 0
}

// post publishes the queue head. A posting attempt always runs to
// completion: success, permanent item failure, or rollback plus account
// restriction. Pause and cancellation are honored at the next decision
// point, never mid-flight.
func (s *AccountSupervisor) post(ctx context.Context, item *ContentItem) {
	if err := canTransitionItem(item.Status, ItemStatusPosting); err != nil {
		s.logger.Error("refusing to post", "item", item.ID, "error", err)
		return
	}
	item.Status = ItemStatusPosting
	item.UpdatedAt = s.now()
	if err := s.persistItem(ctx, item); err != nil {
		item.Status = ItemStatusQueued
		return
	}

	var video io.ReadCloser
	err := s.withRetry(ctx, "download blob", func() error {
		var derr error
		video, derr = s.blobs.Download(ctx, item.StorageKey)
		return derr
	})
	if err != nil {
		item.Status = ItemStatusQueued
		item.UpdatedAt = s.now()
		s.persistItem(ctx, item)
		return
	}
	defer video.Close()

	err = s.poster.Publish(ctx, s.account, video, composeCaption(item))
	switch {
	case err == nil:
		s.finishPost(ctx, item)
	case IsUnrecoverable(err):
		s.failItem(ctx, item, err)
	default:
		// Recoverable access failures and anything unclassified roll the
		// item back to the head of the queue and restrict the account;
		// guessing that an unknown error is safe to retry unattended risks
		// double-posting.
		s.rollback(ctx, item)
		s.restrict(ctx, err.Error())
	}
}

func (s *AccountSupervisor) finishPost(ctx context.Context, item *ContentItem) {
	postedAt := s.now()
	item.Status = ItemStatusPosted
	item.PostedAt = &postedAt
	item.UpdatedAt = postedAt
	if err := s.persistItem(ctx, item); err != nil {
		return
	}

	fp := PublishedFingerprint{
		SourceRef:    item.SourceRef,
		Account:      s.account,
		Fingerprints: item.Fingerprints,
		PublishedAt:  postedAt,
	}
	s.index.Insert(fp)
	if err := s.withRetry(ctx, "record fingerprint", func() error {
		return s.repo.AddPublishedFingerprint(ctx, &fp)
	}); err != nil {
		return
	}

	s.state.LastRelease = postedAt
	s.persistState(ctx)

	s.queue.Remove(item.ID)
	s.lifecycle.Retire(ctx, item)
	s.events.itemPosted(ctx, item)
	s.logger.Info("item posted", "item", item.ID, "source", item.SourceRef)
}

// rollback returns a mid-posting item to queued without disturbing its
// queue position, so the retry goes out first once the account resumes. The
// release time is cleared; it is recomputed from the resume moment.
func (s *AccountSupervisor) rollback(ctx context.Context, item *ContentItem) {
	item.Status = ItemStatusQueued
	item.ReleaseAt = nil
	item.UpdatedAt = s.now()
	s.persistItem(ctx, item)
}

func (s *AccountSupervisor) failItem(ctx context.Context, item *ContentItem, cause error) {
	failedAt := s.now()
	item.Status = ItemStatusFailed
	item.FailedAt = &failedAt
	item.UpdatedAt = failedAt
	if err := s.persistItem(ctx, item); err != nil {
		return
	}
	s.queue.Remove(item.ID)
	s.lifecycle.Retire(ctx, item)
	s.events.itemFailed(ctx, item)
	s.logger.Warn("item failed permanently", "item", item.ID, "source", item.SourceRef, "cause", cause)
}

// restrict handles a recoverable account-level failure. The first failure
// freezes the queue and notifies the operator; repeats while already
// non-active only refresh the retry timestamp.
func (s *AccountSupervisor) restrict(ctx context.Context, reason string) {
	now := s.now()
	if s.state.Health == HealthActive {
		if err := canTransitionHealth(s.state.Health, HealthRestricted); err != nil {
			s.logger.Error("health transition refused", "error", err)
			return
		}
		s.state.Health = HealthRestricted
		s.state.LastFailureAt = &now
		s.persistState(ctx)
		s.events.accountNeedsResume(ctx, s.account, reason)
		s.logger.Warn("account restricted", "reason", reason)
		return
	}

	s.state.Health = HealthRestricted
	s.state.LastFailureAt = &now
	s.persistState(ctx)
}

// halt stops all new transitions for this account after infrastructure
// retries are exhausted. Proceeding with unverified duplicate or queue
// state would trade data safety for liveness.
func (s *AccountSupervisor) halt(ctx context.Context, op string, cause error) {
	if s.state.Halted {
		return
	}
	s.state.Halted = true
	if err := s.repo.UpdateAccount(ctx, s.state); err != nil {
		s.logger.Error("could not persist halt", "error", err)
	}
	s.events.accountHalted(ctx, s.account, fmt.Errorf("%s: %w", op, cause))
	s.logger.Error("account halted", "op", op, "cause", cause)
}

// withRetry runs an infrastructure operation with exponential backoff and
// halts the account when attempts are exhausted.
func (s *AccountSupervisor) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := s.retryBase
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	s.halt(ctx, op, err)
	return err
}

func (s *AccountSupervisor) persistItem(ctx context.Context, item *ContentItem) error {
	return s.withRetry(ctx, "persist item", func() error {
		return s.repo.UpdateItem(ctx, item)
	})
}

func (s *AccountSupervisor) persistState(ctx context.Context) {
	s.state.UpdatedAt = s.now()
	s.withRetry(ctx, "persist account", func() error {
		return s.repo.UpdateAccount(ctx, s.state)
	})
}

func composeCaption(item *ContentItem) string {
	if item.Hashtags == "" {
		return item.Caption
	}
	if item.Caption == "" {
		return item.Hashtags
	}
	return item.Caption + "\n\n" + item.Hashtags
}
