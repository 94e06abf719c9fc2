package clipherd

import "github.com/google/uuid"

// Request DTOs

// RegisterAccountRequest contains parameters for registering an account.
// Zero-valued settings fall back to the service defaults.
type RegisterAccountRequest struct {
	Account  string
	Settings AccountSettings
}

// SubmitDiscoveryRequest records one externally discovered candidate for an
// account. The supervisor fetches, fingerprints and duplicate-checks it
// before it surfaces for review.
type SubmitDiscoveryRequest struct {
	Account        string
	SourceRef      string
	OriginalAuthor string
	Caption        string
	Hashtags       string
}

// EditItemRequest replaces a pending item's caption and hashtags. Edits are
// metadata-only and never touch the fingerprints.
type EditItemRequest struct {
	Account  string
	ItemID   uuid.UUID
	Caption  string
	Hashtags string
}
