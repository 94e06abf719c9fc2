package clipherd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemTransitions(t *testing.T) {
	allowed := []struct{ from, to ItemStatus }{
		{ItemStatusDiscovered, ItemStatusFingerprinted},
		{ItemStatusDiscovered, ItemStatusFailed}, // fetch failure
		{ItemStatusFingerprinted, ItemStatusPendingReview},
		{ItemStatusFingerprinted, ItemStatusRejected},
		{ItemStatusFingerprinted, ItemStatusFailed},
		{ItemStatusPendingReview, ItemStatusQueued},
		{ItemStatusPendingReview, ItemStatusRejected},
		{ItemStatusQueued, ItemStatusPosting},
		{ItemStatusPosting, ItemStatusPosted},
		{ItemStatusPosting, ItemStatusFailed},
		{ItemStatusPosting, ItemStatusQueued}, // rollback
	}
	for _, tt := range allowed {
		assert.NoError(t, canTransitionItem(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to ItemStatus }{
		{ItemStatusDiscovered, ItemStatusQueued},
		{ItemStatusPendingReview, ItemStatusPosting},
		{ItemStatusQueued, ItemStatusPendingReview},
		{ItemStatusPosted, ItemStatusQueued},
		{ItemStatusRejected, ItemStatusPendingReview},
		{ItemStatusFailed, ItemStatusQueued},
	}
	for _, tt := range denied {
		assert.ErrorIs(t, canTransitionItem(tt.from, tt.to), ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
	}

	assert.ErrorIs(t, canTransitionItem(ItemStatus("bogus"), ItemStatusQueued), ErrInvalidItemStatus)
}

func TestHealthTransitions(t *testing.T) {
	allowed := []struct{ from, to AccountHealth }{
		{HealthActive, HealthRestricted},
		{HealthRestricted, HealthRestricted},
		{HealthRestricted, HealthAwaitingResume},
		{HealthAwaitingResume, HealthActive},
		{HealthAwaitingResume, HealthRestricted},
	}
	for _, tt := range allowed {
		assert.NoError(t, canTransitionHealth(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	// Recovery must pass through awaiting_resume.
	assert.ErrorIs(t, canTransitionHealth(HealthRestricted, HealthActive), ErrInvalidHealthTransition)
	assert.ErrorIs(t, canTransitionHealth(HealthActive, HealthAwaitingResume), ErrInvalidHealthTransition)
	assert.ErrorIs(t, canTransitionHealth(AccountHealth("bogus"), HealthActive), ErrInvalidHealthTransition)
}

func TestErrorClassification(t *testing.T) {
	rec := &RecoverableAccessError{Reason: "challenge_required"}
	unrec := &UnrecoverableContentError{Reason: "unsupported codec"}

	assert.True(t, IsRecoverable(rec))
	assert.False(t, IsRecoverable(unrec))
	assert.True(t, IsUnrecoverable(unrec))
	assert.False(t, IsUnrecoverable(rec))

	wrapped := &AccountError{Account: "a", Op: "post", Err: rec}
	assert.True(t, IsRecoverable(wrapped))
}
