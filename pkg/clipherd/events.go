package clipherd

import (
	"context"
	"log/slog"
)

// notifier wraps the configured EventSink for one account supervisor. It
// owns the edge-triggering of QueueLow: the event fires once when the
// remaining count drops below the threshold and is re-armed only after the
// count recovers. Sink errors are logged, never propagated; a notification
// failure must not block a lifecycle transition.
type notifier struct {
	sink    EventSink
	logger  *slog.Logger
	lowSent bool
}

func newNotifier(sink EventSink, logger *slog.Logger) *notifier {
	if sink == nil {
		sink = NewNoopEventSink()
	}
	return &notifier{sink: sink, logger: logger}
}

func (n *notifier) emit(name string, err error) {
	if err != nil {
		n.logger.Warn("event sink error", "event", name, "error", err)
	}
}

func (n *notifier) itemPendingReview(ctx context.Context, item *ContentItem, previewURL string) {
	n.emit("item_pending_review", n.sink.ItemPendingReview(ctx, item, previewURL))
}

func (n *notifier) itemPosted(ctx context.Context, item *ContentItem) {
	n.emit("item_posted", n.sink.ItemPosted(ctx, item))
}

func (n *notifier) itemRejected(ctx context.Context, item *ContentItem, duplicate bool) {
	n.emit("item_rejected", n.sink.ItemRejected(ctx, item, duplicate))
}

func (n *notifier) itemFailed(ctx context.Context, item *ContentItem) {
	n.emit("item_failed", n.sink.ItemFailed(ctx, item))
}

func (n *notifier) accountNeedsResume(ctx context.Context, account, reason string) {
	n.emit("account_needs_resume", n.sink.AccountNeedsResume(ctx, account, reason))
}

func (n *notifier) accountResumed(ctx context.Context, account string) {
	n.emit("account_resumed", n.sink.AccountResumed(ctx, account))
}

func (n *notifier) accountHalted(ctx context.Context, account string, err error) {
	n.emit("account_halted", n.sink.AccountHalted(ctx, account, err))
}

// checkQueueLow fires QueueLow at most once per excursion: when the
// remaining count first drops to the threshold or below, and not again
// until the count recovers above it. A threshold of zero disables the
// event.
func (n *notifier) checkQueueLow(ctx context.Context, account string, remaining, threshold int) {
	if threshold <= 0 {
		return
	}
	if remaining > threshold {
		n.lowSent = false
		return
	}
	if n.lowSent {
		return
	}
	n.lowSent = true
	n.emit("queue_low", n.sink.QueueLow(ctx, account, remaining))
}

// SlogEventSink logs every event through a structured logger. It is the
// default sink for server deployments that have not wired a front end yet.
type SlogEventSink struct {
	logger *slog.Logger
}

// NewSlogEventSink creates a sink that logs events at info level.
func NewSlogEventSink(logger *slog.Logger) *SlogEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{logger: logger}
}

func (s *SlogEventSink) ItemPendingReview(ctx context.Context, item *ContentItem, previewURL string) error {
	s.logger.Info("item pending review", "account", item.Account, "item", item.ID, "source", item.SourceRef, "preview_url", previewURL)
	return nil
}

func (s *SlogEventSink) ItemPosted(ctx context.Context, item *ContentItem) error {
	s.logger.Info("item posted", "account", item.Account, "item", item.ID, "source", item.SourceRef)
	return nil
}

func (s *SlogEventSink) ItemRejected(ctx context.Context, item *ContentItem, duplicate bool) error {
	s.logger.Info("item rejected", "account", item.Account, "item", item.ID, "duplicate", duplicate)
	return nil
}

func (s *SlogEventSink) ItemFailed(ctx context.Context, item *ContentItem) error {
	s.logger.Warn("item failed", "account", item.Account, "item", item.ID, "source", item.SourceRef)
	return nil
}

func (s *SlogEventSink) QueueLow(ctx context.Context, account string, remaining int) error {
	s.logger.Warn("queue low", "account", account, "remaining", remaining)
	return nil
}

func (s *SlogEventSink) AccountNeedsResume(ctx context.Context, account, reason string) error {
	s.logger.Warn("account needs manual resume", "account", account, "reason", reason)
	return nil
}

func (s *SlogEventSink) AccountResumed(ctx context.Context, account string) error {
	s.logger.Info("account resumed", "account", account)
	return nil
}

func (s *SlogEventSink) AccountHalted(ctx context.Context, account string, err error) error {
	s.logger.Error("account halted", "account", account, "error", err)
	return nil
}
