package clipherd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueLowFiresOncePerExcursion(t *testing.T) {
	sink := &recordingSink{}
	n := newNotifier(sink, slog.Default())
	ctx := context.Background()
	const threshold = 2

	// Plenty of items: no event.
	n.checkQueueLow(ctx, "acct", 5, threshold)
	assert.Equal(t, 0, sink.count("queue_low"))

	// Dropping to the threshold fires exactly once.
	n.checkQueueLow(ctx, "acct", 2, threshold)
	assert.Equal(t, 1, sink.count("queue_low"))

	// Staying at or below it stays quiet.
	n.checkQueueLow(ctx, "acct", 2, threshold)
	n.checkQueueLow(ctx, "acct", 1, threshold)
	n.checkQueueLow(ctx, "acct", 0, threshold)
	assert.Equal(t, 1, sink.count("queue_low"))

	// Recovering above the threshold re-arms it.
	n.checkQueueLow(ctx, "acct", 3, threshold)
	n.checkQueueLow(ctx, "acct", 2, threshold)
	assert.Equal(t, 2, sink.count("queue_low"))
}

func TestQueueLowDisabledByZeroThreshold(t *testing.T) {
	sink := &recordingSink{}
	n := newNotifier(sink, slog.Default())

	n.checkQueueLow(context.Background(), "acct", 0, 0)
	assert.Equal(t, 0, sink.count("queue_low"))
}

func TestNotifierNilSinkIsSafe(t *testing.T) {
	n := newNotifier(nil, slog.Default())
	ctx := context.Background()

	n.itemPosted(ctx, &ContentItem{})
	n.accountResumed(ctx, "acct")
	n.checkQueueLow(ctx, "acct", 1, 2)
}
