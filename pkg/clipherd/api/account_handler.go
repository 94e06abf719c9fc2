package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

// AccountHandler handles HTTP requests for accounts and their queues
type AccountHandler struct {
	service clipherd.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service clipherd.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

// Routes returns the routes for accounts
func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.RegisterAccount)
	r.Get("/", h.ListAccounts)
	r.Get("/{account}", h.GetAccount)
	r.Get("/{account}/queue", h.GetQueue)

	r.Post("/{account}/discoveries", h.SubmitDiscovery)
	r.Post("/{account}/items/{id}/accept", h.AcceptItem)
	r.Post("/{account}/items/{id}/reject", h.RejectItem)
	r.Patch("/{account}/items/{id}", h.EditItem)

	r.Post("/{account}/resume", h.ResumeAccount)
	r.Post("/{account}/pause", h.PauseAccount)

	return r
}

// RegisterAccountRequest is the request body for registering an account
type RegisterAccountRequest struct {
	Account           string  `json:"account"`
	PostingInterval   string  `json:"posting_interval,omitempty"`
	JitterFraction    float64 `json:"jitter_fraction,omitempty"`
	QueueLowThreshold int     `json:"queue_low_threshold,omitempty"`
	RejectedLifespan  string  `json:"rejected_lifespan,omitempty"`
	MaxHammingDist    int     `json:"max_hamming_distance,omitempty"`
}

// AccountResponse is the response body for an account
type AccountResponse struct {
	Account     string     `json:"account"`
	Health      string     `json:"health"`
	Paused      bool       `json:"paused"`
	Halted      bool       `json:"halted"`
	LastRelease time.Time  `json:"last_release"`
	LastFailure *time.Time `json:"last_failure_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func accountResponse(state *clipherd.AccountState) AccountResponse {
	return AccountResponse{
		Account:     state.Account,
		Health:      string(state.Health),
		Paused:      state.Paused,
		Halted:      state.Halted,
		LastRelease: state.LastRelease,
		LastFailure: state.LastFailureAt,
		CreatedAt:   state.CreatedAt,
		UpdatedAt:   state.UpdatedAt,
	}
}

// RegisterAccount registers a new managed account
func (h *AccountHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}

	settings := clipherd.AccountSettings{
		JitterFraction:     req.JitterFraction,
		QueueLowThreshold:  req.QueueLowThreshold,
		MaxHammingDistance: req.MaxHammingDist,
	}
	if req.PostingInterval != "" {
		d, err := time.ParseDuration(req.PostingInterval)
		if err != nil {
			http.Error(w, "Invalid posting interval", http.StatusBadRequest)
			return
		}
		settings.PostingInterval = d
	}
	if req.RejectedLifespan != "" {
		d, err := time.ParseDuration(req.RejectedLifespan)
		if err != nil {
			http.Error(w, "Invalid rejected lifespan", http.StatusBadRequest)
			return
		}
		settings.RejectedLifespan = d
	}

	state, err := h.service.RegisterAccount(r.Context(), clipherd.RegisterAccountRequest{
		Account:  req.Account,
		Settings: settings,
	})
	if err != nil {
		if errors.Is(err, clipherd.ErrAccountExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Failed to register account", "account", req.Account, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Account registered", "account", state.Account)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, accountResponse(state))
}

// ListAccounts lists all managed accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.ListAccounts(r.Context())
	if err != nil {
		slog.Error("Failed to list accounts", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]AccountResponse, 0, len(states))
	for _, state := range states {
		resp = append(resp, accountResponse(state))
	}
	render.JSON(w, r, resp)
}

// GetAccount retrieves one account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	state, err := h.service.GetAccount(r.Context(), account)
	if err != nil {
		if errors.Is(err, clipherd.ErrAccountNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get account", "account", account, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, accountResponse(state))
}

// GetQueue returns the account's pipeline snapshot
func (h *AccountHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	snap, err := h.service.QueueSnapshot(r.Context(), account)
	if err != nil {
		if errors.Is(err, clipherd.ErrAccountNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get queue snapshot", "account", account, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, snap)
}

// SubmitDiscoveryRequest is the request body for submitting a discovery
type SubmitDiscoveryRequest struct {
	SourceRef      string `json:"source_ref"`
	OriginalAuthor string `json:"original_author,omitempty"`
	Caption        string `json:"caption,omitempty"`
	Hashtags       string `json:"hashtags,omitempty"`
}

// SubmitDiscovery records an externally discovered candidate
func (h *AccountHandler) SubmitDiscovery(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	var req SubmitDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SourceRef == "" {
		http.Error(w, "source_ref is required", http.StatusBadRequest)
		return
	}

	cmdID, err := h.service.SubmitDiscovery(r.Context(), clipherd.SubmitDiscoveryRequest{
		Account:        account,
		SourceRef:      req.SourceRef,
		OriginalAuthor: req.OriginalAuthor,
		Caption:        req.Caption,
		Hashtags:       req.Hashtags,
	})
	if err != nil {
		h.writeCommandError(w, account, "submit discovery", err)
		return
	}

	slog.Info("Discovery submitted", "account", account, "source_ref", req.SourceRef)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"command_id": cmdID.String()})
}

// AcceptItem approves a pending item for posting
func (h *AccountHandler) AcceptItem(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	itemID, ok := h.parseItemID(w, r)
	if !ok {
		return
	}

	if err := h.service.AcceptItem(r.Context(), account, itemID); err != nil {
		h.writeCommandError(w, account, "accept item", err)
		return
	}

	slog.Info("Item accepted", "account", account, "item_id", itemID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// RejectItem discards a pending item
func (h *AccountHandler) RejectItem(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	itemID, ok := h.parseItemID(w, r)
	if !ok {
		return
	}

	if err := h.service.RejectItem(r.Context(), account, itemID); err != nil {
		h.writeCommandError(w, account, "reject item", err)
		return
	}

	slog.Info("Item rejected", "account", account, "item_id", itemID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "rejected"})
}

// EditItemRequest is the request body for editing a pending item
type EditItemRequest struct {
	Caption  string `json:"caption"`
	Hashtags string `json:"hashtags"`
}

// EditItem updates the caption and hashtags of a pending item
func (h *AccountHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	itemID, ok := h.parseItemID(w, r)
	if !ok {
		return
	}

	var req EditItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.EditItem(r.Context(), clipherd.EditItemRequest{
		Account:  account,
		ItemID:   itemID,
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
	}); err != nil {
		h.writeCommandError(w, account, "edit item", err)
		return
	}

	slog.Info("Item edited", "account", account, "item_id", itemID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "edited"})
}

// ResumeAccount acknowledges a restriction and asks the supervisor to
// re-validate access
func (h *AccountHandler) ResumeAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	if err := h.service.ResumeAccount(r.Context(), account); err != nil {
		h.writeCommandError(w, account, "resume account", err)
		return
	}

	slog.Info("Account resume requested", "account", account)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "resuming"})
}

// PauseAccount stops releases without touching the queue
func (h *AccountHandler) PauseAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	if err := h.service.PauseAccount(r.Context(), account); err != nil {
		h.writeCommandError(w, account, "pause account", err)
		return
	}

	slog.Info("Account pause requested", "account", account)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "pausing"})
}

func (h *AccountHandler) parseItemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *AccountHandler) writeCommandError(w http.ResponseWriter, account, operation string, err error) {
	switch {
	case errors.Is(err, clipherd.ErrAccountNotFound), errors.Is(err, clipherd.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, clipherd.ErrAccountHalted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Failed to "+operation, "account", account, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
