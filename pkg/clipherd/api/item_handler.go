package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

// ItemHandler handles account-independent item lookups
type ItemHandler struct {
	service clipherd.Service
}

// NewItemHandler creates a new item handler
func NewItemHandler(service clipherd.Service) *ItemHandler {
	return &ItemHandler{service: service}
}

// Routes returns the routes for items
func (h *ItemHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.GetItem)
	return r
}

// GetItem retrieves one content item by ID
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, clipherd.ErrItemNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get item", "item_id", idStr, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, item)
}
