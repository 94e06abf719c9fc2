package clipherd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrItemNotFound indicates a content item was not found
	ErrItemNotFound = errors.New("content item not found")

	// ErrAccountNotFound indicates an account was not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account is already registered
	ErrAccountExists = errors.New("account already registered")

	// ErrCommandNotFound indicates a pending command was not found
	ErrCommandNotFound = errors.New("command not found")

	// ErrInvalidItemStatus indicates an invalid item status value
	ErrInvalidItemStatus = errors.New("invalid item status")

	// ErrInvalidTransition indicates a state transition the item lifecycle
	// does not allow
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidHealthTransition indicates a health transition the account
	// state machine does not allow
	ErrInvalidHealthTransition = errors.New("invalid health transition")

	// ErrAccountHalted indicates the supervisor stopped taking new
	// transitions after exhausting infrastructure retries
	ErrAccountHalted = errors.New("account halted pending operator attention")
)

// RecoverableAccessError reports an account-level condition (login
// challenge, temporary block, rate limit) that requires manual remediation
// before the same operation can succeed again. It restricts the account but
// never fails individual items permanently.
type RecoverableAccessError struct {
	Reason string
	Err    error
}

func (e *RecoverableAccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recoverable access failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("recoverable access failure: %s", e.Reason)
}

func (e *RecoverableAccessError) Unwrap() error {
	return e.Err
}

// UnrecoverableContentError reports that a specific piece of content will
// never be accepted by the destination (bad format, policy rejection). It
// fails the single item and leaves account health untouched.
type UnrecoverableContentError struct {
	Reason string
	Err    error
}

func (e *UnrecoverableContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecoverable content failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unrecoverable content failure: %s", e.Reason)
}

func (e *UnrecoverableContentError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is (or wraps) a RecoverableAccessError.
func IsRecoverable(err error) bool {
	var r *RecoverableAccessError
	return errors.As(err, &r)
}

// IsUnrecoverable reports whether err is (or wraps) an
// UnrecoverableContentError.
func IsUnrecoverable(err error) bool {
	var u *UnrecoverableContentError
	return errors.As(err, &u)
}

// ItemError represents an error related to a content item operation
type ItemError struct {
	ItemID uuid.UUID
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// AccountError represents an error related to an account operation
type AccountError struct {
	Account string
	Op      string
	Err     error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account operation %s failed for account %s: %v", e.Op, e.Account, e.Err)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
