package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/state"
	"github.com/brasaviva/api/internal/store"
)

// MenuHandler exposes the menu: public read from the snapshot, admin
// CRUD through the sync layer.
type MenuHandler struct {
	app *state.Store
	log *logrus.Entry
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(app *state.Store, log *logrus.Logger) *MenuHandler {
	return &MenuHandler{app: app, log: log.WithField("handler", "menu")}
}

// RegisterPublicRoutes registers the read endpoint.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/menu", h.List)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/api/menu", h.Create)
	r.Put("/api/menu/{id}", h.Update)
	r.Delete("/api/menu/{id}", h.Delete)
}

type menuItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
}

func (req menuItemRequest) toRecord(id string) record.MenuItem {
	return record.MenuItem{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Image:       req.Image,
		Available:   req.Available,
	}
}

// List returns the menu ordered by category, as delivered by the
// latest subscription round trip.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Snapshot().MenuItems)
}

// Create inserts a menu item; the store assigns the id.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := req.toRecord("")
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.app.AddMenuItem(r.Context(), item)
	if err != nil {
		h.log.WithError(err).Error("create menu item")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update overwrites a menu item by id. Full replace, no field merge:
// fields absent from the request body end up at their zero value.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := req.toRecord(id)
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.app.UpdateMenuItem(r.Context(), item); err != nil {
		h.log.WithError(err).Error("update menu item")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a menu item by id.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.app.RemoveMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		h.log.WithError(err).Error("delete menu item")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
