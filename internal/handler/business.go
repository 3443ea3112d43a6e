package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/state"
)

// BusinessHandler exposes the business info singleton: public read
// from the snapshot, admin full-replace write through the sync layer.
type BusinessHandler struct {
	app *state.Store
	log *logrus.Entry
}

// NewBusinessHandler creates a new BusinessHandler.
func NewBusinessHandler(app *state.Store, log *logrus.Logger) *BusinessHandler {
	return &BusinessHandler{app: app, log: log.WithField("handler", "business")}
}

// RegisterPublicRoutes registers the read endpoint.
func (h *BusinessHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/business", h.Get)
}

// RegisterAdminRoutes registers the write endpoint.
func (h *BusinessHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/api/business", h.Update)
}

type businessResponse struct {
	BusinessName string `json:"businessName"`
	LogoURL      string `json:"logoUrl"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Slogan       string `json:"slogan"`
}

// Get returns the last-known business info.
func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Snapshot()
	writeJSON(w, http.StatusOK, businessResponse{
		BusinessName: snap.BusinessName,
		LogoURL:      snap.LogoURL,
		Phone:        snap.Phone,
		Address:      snap.Address,
		Slogan:       snap.Slogan,
	})
}

// Update fully replaces the business info. There is no partial-field
// API at this boundary; the snapshot catches up on the next
// subscription delivery.
func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req record.BusinessInfo
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessName == "" {
		writeError(w, http.StatusBadRequest, "businessName is required")
		return
	}

	if err := h.app.SetBusinessInfo(r.Context(), req); err != nil {
		h.log.WithError(err).Error("save business info")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
