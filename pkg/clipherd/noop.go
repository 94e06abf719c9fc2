package clipherd

import (
	"context"
)

// NoopEventSink is a no-operation implementation of EventSink.
// Useful when no front end is attached or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ItemPendingReview does nothing and returns nil
func (n *NoopEventSink) ItemPendingReview(ctx context.Context, item *ContentItem, previewURL string) error {
	return nil
}

// ItemPosted does nothing and returns nil
func (n *NoopEventSink) ItemPosted(ctx context.Context, item *ContentItem) error {
	return nil
}

// ItemRejected does nothing and returns nil
func (n *NoopEventSink) ItemRejected(ctx context.Context, item *ContentItem, duplicate bool) error {
	return nil
}

// ItemFailed does nothing and returns nil
func (n *NoopEventSink) ItemFailed(ctx context.Context, item *ContentItem) error {
	return nil
}

// QueueLow does nothing and returns nil
func (n *NoopEventSink) QueueLow(ctx context.Context, account string, remaining int) error {
	return nil
}

// AccountNeedsResume does nothing and returns nil
func (n *NoopEventSink) AccountNeedsResume(ctx context.Context, account, reason string) error {
	return nil
}

// AccountResumed does nothing and returns nil
func (n *NoopEventSink) AccountResumed(ctx context.Context, account string) error {
	return nil
}

// AccountHalted does nothing and returns nil
func (n *NoopEventSink) AccountHalted(ctx context.Context, account string, err error) error {
	return nil
}
