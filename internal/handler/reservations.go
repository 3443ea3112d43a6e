package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/state"
	"github.com/brasaviva/api/internal/store"
)

// ReservationHandler exposes reservation intake (public) and
// management (admin).
type ReservationHandler struct {
	app *state.Store
	log *logrus.Entry
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(app *state.Store, log *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{app: app, log: log.WithField("handler", "reservations")}
}

// RegisterPublicRoutes registers the intake endpoint.
func (h *ReservationHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/api/reservations", h.Create)
}

// RegisterAdminRoutes registers the management endpoints.
func (h *ReservationHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/api/reservations", h.List)
	r.Patch("/api/reservations/{id}/status", h.UpdateStatus)
	r.Delete("/api/reservations/{id}", h.Delete)
	r.Delete("/api/reservations", h.DeleteAll)
}

type createReservationRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Guests int    `json:"guests"`
	Type   string `json:"type"`
	Notes  string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Create takes a reservation from the public form. Status and
// createdAt are set server-side, never by the caller.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := record.Reservation{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Date:   req.Date,
		Time:   req.Time,
		Guests: req.Guests,
		Type:   req.Type,
		Notes:  req.Notes,
	}
	if err := res.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.app.AddReservation(r.Context(), res)
	if err != nil {
		h.log.WithError(err).Error("create reservation")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// List returns all reservations, most recent date first.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Snapshot().Reservations)
}

// UpdateStatus patches only the status of one reservation.
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.app.UpdateReservationStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, record.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case err != nil:
		h.log.WithError(err).Error("update reservation status")
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Delete removes one reservation.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.app.RemoveReservation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reservation not found")
			return
		}
		h.log.WithError(err).Error("delete reservation")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll sweeps every reservation visible at query time.
func (h *ReservationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ClearAllReservations(r.Context()); err != nil {
		h.log.WithError(err).Error("clear reservations")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
