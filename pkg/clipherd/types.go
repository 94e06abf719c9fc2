package clipherd

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the domain type for content item lifecycle states.
type ItemStatus string

// Item status constants (typed).
const (
	ItemStatusDiscovered    ItemStatus = "discovered"
	ItemStatusFingerprinted ItemStatus = "fingerprinted"
	ItemStatusPendingReview ItemStatus = "pending_review"
	ItemStatusQueued        ItemStatus = "queued"
	ItemStatusPosting       ItemStatus = "posting"
	ItemStatusPosted        ItemStatus = "posted"
	ItemStatusRejected      ItemStatus = "rejected"
	ItemStatusFailed        ItemStatus = "failed"
)

// Terminal reports whether the status is one of the three end states.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusPosted || s == ItemStatusRejected || s == ItemStatusFailed
}

// Active reports whether the item is in a state that pins its stored blob:
// awaiting review, queued for release, or mid-post.
func (s ItemStatus) Active() bool {
	return s == ItemStatusPendingReview || s == ItemStatusQueued || s == ItemStatusPosting
}

// AccountHealth is the domain type for per-account health states.
type AccountHealth string

// Account health constants (typed).
const (
	// HealthActive means the account is posting normally.
	HealthActive AccountHealth = "active"
	// HealthRestricted means a recoverable failure (login challenge, rate
	// limit) blocked the account and an operator must intervene.
	HealthRestricted AccountHealth = "restricted"
	// HealthAwaitingResume means an operator acknowledged the block and the
	// supervisor is re-validating access before going back to active.
	HealthAwaitingResume AccountHealth = "awaiting_resume"
)

// ContentItem represents one discovered candidate video.
//
// The fingerprint set is computed at most once, when the item moves from
// discovered to fingerprinted, and never recomputed; metadata edits do not
// touch it. StorageKey is set while a blob is held for the item and cleared
// when the LifecycleManager retires the blob.
type ContentItem struct {
	ID             uuid.UUID      `json:"id"`
	Account        string         `json:"account"`
	SourceRef      string         `json:"source_ref"`
	OriginalAuthor string         `json:"original_author,omitempty"`
	Caption        string         `json:"caption,omitempty"`
	Hashtags       string         `json:"hashtags,omitempty"`
	Fingerprints   FingerprintSet `json:"fingerprints,omitempty"`
	StorageKey     string         `json:"storage_key,omitempty"`
	Status         ItemStatus     `json:"status"`
	DiscoveredAt   time.Time      `json:"discovered_at"`
	QueuedAt       *time.Time     `json:"queued_at,omitempty"`
	ReleaseAt      *time.Time     `json:"release_at,omitempty"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
	RejectedAt     *time.Time     `json:"rejected_at,omitempty"`
	FailedAt       *time.Time     `json:"failed_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AccountSettings holds the per-account tuning knobs.
type AccountSettings struct {
	// PostingInterval is the base interval between releases.
	PostingInterval time.Duration `json:"posting_interval"`
	// JitterFraction perturbs each interval by uniform(-f*I, +f*I).
	JitterFraction float64 `json:"jitter_fraction"`
	// QueueLowThreshold fires a QueueLow event when the count of queued
	// plus pending-review items drops to this value or below.
	QueueLowThreshold int `json:"queue_low_threshold"`
	// RejectedLifespan bounds how long a rejected item's record is kept.
	RejectedLifespan time.Duration `json:"rejected_lifespan"`
	// MaxHammingDistance is the exclusive duplicate-distance bound: a
	// candidate whose minimum distance to any published fingerprint is
	// below this value is rejected as a duplicate.
	MaxHammingDistance int `json:"max_hamming_distance"`
}

// AccountState is the supervisor-owned runtime state of one account.
type AccountState struct {
	Account       string          `json:"account"`
	Health        AccountHealth   `json:"health"`
	Paused        bool            `json:"paused"`
	Halted        bool            `json:"halted"`
	LastRelease   time.Time       `json:"last_release"`
	LastFailureAt *time.Time      `json:"last_failure_at,omitempty"`
	Settings      AccountSettings `json:"settings"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PublishedFingerprint is one DuplicateIndex entry as persisted: the
// fingerprint set of a successfully published item.
type PublishedFingerprint struct {
	SourceRef    string         `json:"source_ref"`
	Account      string         `json:"account"`
	Fingerprints FingerprintSet `json:"fingerprints"`
	PublishedAt  time.Time      `json:"published_at"`
}

// CommandKind identifies an inbound operator/front-end request.
type CommandKind string

// Command kinds.
const (
	CommandDiscover CommandKind = "discover"
	CommandAccept   CommandKind = "accept"
	CommandReject   CommandKind = "reject"
	CommandEdit     CommandKind = "edit"
	CommandResume   CommandKind = "resume"
	CommandPause    CommandKind = "pause"
)

// Command is a durable request to an account supervisor. Commands are
// recorded through the Repository before the supervisor acts on them, so a
// restart replays whatever was pending instead of losing it.
type Command struct {
	ID        uuid.UUID   `json:"id"`
	Account   string      `json:"account"`
	Kind      CommandKind `json:"kind"`
	ItemID    uuid.UUID   `json:"item_id,omitempty"`
	Discovery *Discovery  `json:"discovery,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Hashtags  string      `json:"hashtags,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Discovery carries the payload of a discover command: one raw content
// reference reported by the Scraper or an external feeder.
type Discovery struct {
	SourceRef      string `json:"source_ref"`
	OriginalAuthor string `json:"original_author,omitempty"`
	Caption        string `json:"caption,omitempty"`
	Hashtags       string `json:"hashtags,omitempty"`
}

// QueueSnapshot is a read-only view of an account's pipeline for the front
// end: the pending and queued items plus the live countdown.
type QueueSnapshot struct {
	Account        string         `json:"account"`
	Health         AccountHealth  `json:"health"`
	Paused         bool           `json:"paused"`
	PendingReview  []*ContentItem `json:"pending_review"`
	Queued         []*ContentItem `json:"queued"`
	NextReleaseIn  *time.Duration `json:"next_release_in,omitempty"`
	QueueLow       bool           `json:"queue_low"`
	RemainingItems int            `json:"remaining_items"`
}
