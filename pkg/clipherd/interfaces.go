package clipherd

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
)

// Scraper discovers and fetches raw content for an account. Discover doubles
// as the access probe used when re-validating a restricted account: a
// RecoverableAccessError from either method restricts the account.
type Scraper interface {
	// Discover returns raw content references currently visible for the
	// account. Already-known references are filtered by the caller.
	Discover(ctx context.Context, account string) ([]RawContent, error)

	// Fetch downloads the raw video bytes for one reference.
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// RawContent is one discovered candidate as reported by the Scraper.
type RawContent struct {
	Ref            string
	OriginalAuthor string
	Caption        string
	Hashtags       string
}

// Poster publishes a video to the destination account. A returned
// RecoverableAccessError rolls the item back and restricts the account; an
// UnrecoverableContentError fails the single item.
type Poster interface {
	Publish(ctx context.Context, account string, video io.Reader, caption string) error
}

// FrameExtractor samples frames from a video: the first frame, the last
// frame, and two interior frames at evenly spaced offsets, in that order.
type FrameExtractor interface {
	Sample(ctx context.Context, video io.Reader) ([]image.Image, error)
}

// PerceptualHasher computes a fixed-length perceptual fingerprint for one
// frame. Implementations must be pure: the same frame always hashes to the
// same fingerprint.
type PerceptualHasher interface {
	Hash(frame image.Image) Fingerprint
}

// BlobStore holds video payloads between acceptance and retirement.
type BlobStore interface {
	// Upload stores a blob under the given key.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download streams a stored blob.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL the front end can use to preview the
	// blob (presigned where the backend supports it).
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// Delete removes a blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, objectKey string) error
}

// Repository is the durable record of every content item, account state,
// published fingerprint and pending command, sufficient to rebuild all
// in-memory state after a restart with no loss of queued or in-flight work.
type Repository interface {
	// Item operations
	CreateItem(ctx context.Context, item *ContentItem) error
	GetItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	UpdateItem(ctx context.Context, item *ContentItem) error
	// ListItems returns the account's items, oldest first, optionally
	// filtered by status.
	ListItems(ctx context.Context, account string, statuses ...ItemStatus) ([]*ContentItem, error)
	// PurgeItem removes an item record entirely. Only terminal items whose
	// storage reference has been released may be purged.
	PurgeItem(ctx context.Context, id uuid.UUID) error

	// Account operations
	CreateAccount(ctx context.Context, state *AccountState) error
	GetAccount(ctx context.Context, account string) (*AccountState, error)
	UpdateAccount(ctx context.Context, state *AccountState) error
	ListAccounts(ctx context.Context) ([]*AccountState, error)

	// Published fingerprint operations (duplicate index persistence).
	// AddPublishedFingerprint is idempotent on SourceRef.
	AddPublishedFingerprint(ctx context.Context, fp *PublishedFingerprint) error
	ListPublishedFingerprints(ctx context.Context) ([]*PublishedFingerprint, error)
	DeletePublishedFingerprintsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Command operations (durable inbound request queue).
	EnqueueCommand(ctx context.Context, cmd *Command) error
	PendingCommands(ctx context.Context, account string) ([]*Command, error)
	CompleteCommand(ctx context.Context, id uuid.UUID) error
}

// EventSink receives state-change notifications for the external front end.
// Sink errors are logged and never fail the transition that produced them.
type EventSink interface {
	// ItemPendingReview is fired when a candidate survives the duplicate
	// check and surfaces for human review. previewURL may be empty when the
	// blob backend cannot produce one.
	ItemPendingReview(ctx context.Context, item *ContentItem, previewURL string) error

	// ItemPosted is fired when an item is successfully published.
	ItemPosted(ctx context.Context, item *ContentItem) error

	// ItemRejected is fired on human or duplicate rejection.
	ItemRejected(ctx context.Context, item *ContentItem, duplicate bool) error

	// ItemFailed is fired when the destination permanently rejects an item.
	ItemFailed(ctx context.Context, item *ContentItem) error

	// QueueLow is fired once when the count of queued plus pending-review
	// items drops to or below the account's threshold, and not again until
	// the count recovers above it.
	QueueLow(ctx context.Context, account string, remaining int) error

	// AccountNeedsResume is fired once when a recoverable failure restricts
	// the account; repeated failures while restricted do not re-notify.
	AccountNeedsResume(ctx context.Context, account, reason string) error

	// AccountResumed is fired when re-validation succeeds and the account
	// returns to active.
	AccountResumed(ctx context.Context, account string) error

	// AccountHalted is fired when infrastructure retries are exhausted and
	// the supervisor stops taking new transitions.
	AccountHalted(ctx context.Context, account string, err error) error
}
