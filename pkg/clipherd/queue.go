package clipherd

import (
	"github.com/google/uuid"
)

// AccountQueue is the ordered collection of one account's items awaiting
// review or release. Insertion order is discovery order and breaks ties for
// release; actual release eligibility is gated by the head's scheduled
// release time, not position alone.
//
// The queue is owned exclusively by the account's supervisor and is not safe
// for concurrent use; the supervisor's sequential loop is the only writer.
type AccountQueue struct {
	items []*ContentItem
}

// NewAccountQueue creates an empty queue.
func NewAccountQueue() *AccountQueue {
	return &AccountQueue{}
}

// Push appends an item in discovery order.
func (q *AccountQueue) Push(item *ContentItem) {
	q.items = append(q.items, item)
}

// Get returns the queued item with the given ID, or nil.
func (q *AccountQueue) Get(id uuid.UUID) *ContentItem {
	for _, it := range q.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Remove drops the item with the given ID, preserving order, and reports
// whether it was present.
func (q *AccountQueue) Remove(id uuid.UUID) bool {
	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Head returns the first item eligible for release consideration: the
// oldest item in queued (or mid-posting, after a rollback) state. A head
// rolled back from posting keeps its position, so a retry goes out first.
func (q *AccountQueue) Head() *ContentItem {
	for _, it := range q.items {
		if it.Status == ItemStatusQueued || it.Status == ItemStatusPosting {
			return it
		}
	}
	return nil
}

// Remaining counts the items still feeding the pipeline: queued plus
// pending review. This is the count the queue-low threshold compares
// against.
func (q *AccountQueue) Remaining() int {
	n := 0
	for _, it := range q.items {
		if it.Status == ItemStatusQueued || it.Status == ItemStatusPendingReview || it.Status == ItemStatusPosting {
			n++
		}
	}
	return n
}

// PendingReview returns the items awaiting a review decision, oldest first.
func (q *AccountQueue) PendingReview() []*ContentItem {
	var out []*ContentItem
	for _, it := range q.items {
		if it.Status == ItemStatusPendingReview {
			out = append(out, it)
		}
	}
	return out
}

// Queued returns the items accepted and awaiting release, oldest first.
func (q *AccountQueue) Queued() []*ContentItem {
	var out []*ContentItem
	for _, it := range q.items {
		if it.Status == ItemStatusQueued || it.Status == ItemStatusPosting {
			out = append(out, it)
		}
	}
	return out
}

// ContainsSimilar reports whether any item in the queue carries a
// fingerprint within maxDistance (exclusive) of the given set. Together
// with the DuplicateIndex check this keeps near-duplicates from ever
// coexisting in one queue.
func (q *AccountQueue) ContainsSimilar(set FingerprintSet, maxDistance int) bool {
	for _, it := range q.items {
		if it.Fingerprints.IsZero() {
			continue
		}
		if it.Fingerprints.MinDistance(set) < maxDistance {
			return true
		}
	}
	return false
}

// ContainsRef reports whether an item with the given source ref is present.
func (q *AccountQueue) ContainsRef(sourceRef string) bool {
	for _, it := range q.items {
		if it.SourceRef == sourceRef {
			return true
		}
	}
	return false
}

// Len returns the total number of items held, regardless of status.
func (q *AccountQueue) Len() int {
	return len(q.items)
}
