package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/auth"
	"github.com/brasaviva/api/internal/middleware"
	"github.com/brasaviva/api/internal/state"
)

// AuthHandler handles admin login and logout. The credential is the
// single shared admin password synchronized from the record store;
// the comparison is plaintext, as stored.
type AuthHandler struct {
	app       *state.Store
	jwtSecret string
	log       *logrus.Entry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(app *state.Store, jwtSecret string, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{app: app, jwtSecret: jwtSecret, log: log.WithField("handler", "auth")}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)
}

// RegisterAdminRoutes registers the password change endpoint.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/api/password", h.ChangePassword)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login checks the password against the synchronized snapshot and,
// on success, issues a session token both in the body and as a
// session-scoped cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.app.Login(req.Password) {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	token, err := auth.GenerateSessionToken(h.jwtSecret)
	if err != nil {
		h.log.WithError(err).Error("sign session token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword overwrites the shared admin password. The snapshot
// reflects it after the subscription round trip, like any other
// mutation.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.app.ChangePassword(r.Context(), req.Password); err != nil {
		h.log.WithError(err).Error("save admin password")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the login flag and expires the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.app.Logout()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
