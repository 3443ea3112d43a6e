package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/enum"
	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/state"
)

// SiteHandler serves the aggregate page payload and the dynamic
// installable-app manifest.
type SiteHandler struct {
	app *state.Store
	log *logrus.Entry
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(app *state.Store, log *logrus.Logger) *SiteHandler {
	return &SiteHandler{app: app, log: log.WithField("handler", "site")}
}

// RegisterRoutes registers the public site endpoints.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/site", h.Get)
	r.Get("/manifest.webmanifest", h.Manifest)
}

type siteResponse struct {
	Business businessResponse             `json:"business"`
	Menu     map[string][]record.MenuItem `json:"menu"`
	Loading  bool                         `json:"loading"`
}

// Get returns everything the landing page renders from: business
// fields plus the menu grouped by category.
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Snapshot()

	menu := map[string][]record.MenuItem{
		enum.CategoryTarde: {},
		enum.CategoryNoche: {},
	}
	for _, item := range snap.MenuItems {
		menu[item.Category] = append(menu[item.Category], item)
	}

	writeJSON(w, http.StatusOK, siteResponse{
		Business: businessResponse{
			BusinessName: snap.BusinessName,
			LogoURL:      snap.LogoURL,
			Phone:        snap.Phone,
			Address:      snap.Address,
			Slogan:       snap.Slogan,
		},
		Menu:    menu,
		Loading: snap.Loading,
	})
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Description     string         `json:"description"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Icons           []manifestIcon `json:"icons"`
}

// Manifest regenerates the installable-app descriptor from the
// configured business info. A configured logo (data URI) replaces
// the bundled icons; nothing is persisted server-side.
func (h *SiteHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Snapshot()

	icons := []manifestIcon{
		{Src: "/icons/icon-192.svg", Sizes: "192x192", Type: "image/svg+xml"},
		{Src: "/icons/icon-512.svg", Sizes: "512x512", Type: "image/svg+xml"},
	}
	if snap.LogoURL != "" {
		icons = []manifestIcon{
			{Src: snap.LogoURL, Sizes: "192x192", Type: "image/png"},
			{Src: snap.LogoURL, Sizes: "512x512", Type: "image/png"},
		}
	}

	w.Header().Set("Content-Type", "application/manifest+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(webManifest{
		Name:            snap.BusinessName,
		ShortName:       snap.BusinessName,
		Description:     snap.Slogan,
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: "#0a0a0a",
		ThemeColor:      "#f97316",
		Icons:           icons,
	})
}
