package clipherd

import "fmt"

// itemTransitions enumerates the legal item status transitions. Posted,
// rejected and failed are terminal. Failed is reachable before review as
// well: a fetch or sampling failure ends the item without it ever surfacing.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusDiscovered:    {ItemStatusFingerprinted, ItemStatusFailed},
	ItemStatusFingerprinted: {ItemStatusPendingReview, ItemStatusRejected, ItemStatusFailed},
	ItemStatusPendingReview: {ItemStatusQueued, ItemStatusRejected},
	ItemStatusQueued:        {ItemStatusPosting},
	ItemStatusPosting:       {ItemStatusPosted, ItemStatusFailed, ItemStatusQueued},
}

// canTransitionItem checks whether an item may move from one status to
// another. The only backward edge is posting to queued, the rollback taken
// when a recoverable posting failure restricts the account.
func canTransitionItem(from, to ItemStatus) error {
	next, ok := itemTransitions[from]
	if !ok {
		if from.Terminal() {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
		}
		return fmt.Errorf("%w: unknown status %s", ErrInvalidItemStatus, from)
	}
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// canTransitionHealth checks whether an account may move from one health
// state to another. Repeating restricted is legal so a second recoverable
// failure while already blocked stays idempotent. Recovery never skips
// awaiting_resume: a restricted account only becomes active again after an
// operator acknowledgment and a successful re-validation.
func canTransitionHealth(from, to AccountHealth) error {
	switch from {
	case HealthActive:
		if to == HealthRestricted {
			return nil
		}
	case HealthRestricted:
		if to == HealthRestricted || to == HealthAwaitingResume {
			return nil
		}
	case HealthAwaitingResume:
		if to == HealthActive || to == HealthRestricted {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown health %s", ErrInvalidHealthTransition, from)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidHealthTransition, from, to)
}
