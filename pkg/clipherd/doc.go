// Package clipherd implements the content lifecycle and account-health
// orchestration engine behind a multi-account short-video republishing
// system.
//
// Each account is driven by a single long-lived AccountSupervisor that owns
// the account's review/posting queue and health state. Discovered content
// moves through a fixed lifecycle (discovered, fingerprinted, pending review,
// queued, posting) into one of three terminal states (posted, rejected,
// failed). A process-wide DuplicateIndex of perceptual fingerprints filters
// out content that was already published, and a jittered Scheduler decides
// when the next queued item is released.
//
// External concerns are injected as collaborators: Scraper and Poster talk to
// the social network, FrameExtractor and PerceptualHasher compute frame
// fingerprints, BlobStore holds video payloads, Repository persists all
// state, and EventSink carries notifications to the review front end.
// Implementations of repositories (memory, Postgres) and blob stores (memory,
// filesystem, S3) are provided under subpackages.
package clipherd
