package clipherd

import (
	"context"

	"github.com/google/uuid"
)

// Service is the main interface of the clipherd engine. Commands are
// durably recorded before the owning supervisor acts on them; submitting a
// command for a stopped account is not an error, it replays when the
// account starts.
type Service interface {
	// Account operations
	RegisterAccount(ctx context.Context, req RegisterAccountRequest) (*AccountState, error)
	GetAccount(ctx context.Context, account string) (*AccountState, error)
	ListAccounts(ctx context.Context) ([]*AccountState, error)

	// Lifecycle of the engine itself
	Start(ctx context.Context) error
	Stop()

	// Inbound content
	SubmitDiscovery(ctx context.Context, req SubmitDiscoveryRequest) (uuid.UUID, error)

	// Front-end commands
	AcceptItem(ctx context.Context, account string, itemID uuid.UUID) error
	RejectItem(ctx context.Context, account string, itemID uuid.UUID) error
	EditItem(ctx context.Context, req EditItemRequest) error
	ResumeAccount(ctx context.Context, account string) error
	PauseAccount(ctx context.Context, account string) error

	// Read-only views
	GetItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	QueueSnapshot(ctx context.Context, account string) (*QueueSnapshot, error)
}
