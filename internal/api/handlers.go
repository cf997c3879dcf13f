package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/price-tracker/internal/engine"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/store"
)

// Checker is the slice of the monitor the API drives.
type Checker interface {
	CheckNow(ctx context.Context, id string) (*models.ExtractionResult, error)
	RunPass(ctx context.Context) error
}

// Handlers is the admin control plane: item management, manual checks, and
// the restart signal that replaces out-of-band restart hacks.
type Handlers struct {
	store   store.ItemStore
	checker Checker
	restart func()
	logger  *slog.Logger
}

func NewHandlers(itemStore store.ItemStore, checker Checker, restart func()) *Handlers {
	return &Handlers{
		store:   itemStore,
		checker: checker,
		restart: restart,
		logger:  slog.Default().With("component", "api"),
	}
}

type createItemRequest struct {
	URL         string  `json:"url"`
	TargetPrice float64 `json:"target_price"`
	Tag         string  `json:"tag"`
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.TargetPrice <= 0 {
		h.respondError(w, http.StatusBadRequest, "target_price must be positive")
		return
	}

	site, err := engine.ValidateURL(req.URL)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "unsupported or invalid product url")
		return
	}

	item := models.NewTrackedItem(req.URL, site, req.TargetPrice, req.Tag)
	if err := h.store.Create(r.Context(), item); err != nil {
		h.logger.Error("failed to create item", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.respondJSON(w, http.StatusCreated, item)
}

func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []*models.TrackedItem{}
	}
	h.respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(r.Context(), chi.URLParam(r, "itemID"))
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

type targetPriceRequest struct {
	TargetPrice float64 `json:"target_price"`
}

func (h *Handlers) SetTargetPrice(w http.ResponseWriter, r *http.Request) {
	var req targetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetPrice <= 0 {
		h.respondError(w, http.StatusBadRequest, "target_price must be positive")
		return
	}

	err := h.store.SetTargetPrice(r.Context(), chi.URLParam(r, "itemID"), req.TargetPrice)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to update target price")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), chi.URLParam(r, "itemID"))
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CheckItem triggers an immediate extraction cycle for one item.
func (h *Handlers) CheckItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.checker.CheckNow(r.Context(), chi.URLParam(r, "itemID"))
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.logger.Error("manual check failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "check failed")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// CheckAll kicks off a full polling pass in the background.
func (h *Handlers) CheckAll(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.checker.RunPass(context.Background()); err != nil {
			h.logger.Error("manual pass failed", "error", err)
		}
	}()
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "pass started"})
}

// Restart asks the process to shut down cleanly so the supervisor brings a
// fresh one up.
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("restart requested")
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
	go h.restart()
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	health := map[string]interface{}{"status": "ok"}
	if err != nil {
		health["status"] = "degraded"
		health["error"] = err.Error()
		h.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health["tracked_items"] = len(items)
	h.respondJSON(w, http.StatusOK, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
