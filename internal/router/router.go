package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/config"
	"github.com/brasaviva/api/internal/handler"
	mw "github.com/brasaviva/api/internal/middleware"
	"github.com/brasaviva/api/internal/offline"
	"github.com/brasaviva/api/internal/state"
	"github.com/brasaviva/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Static assets fall through to the offline gateway; record traffic
// never does.
func New(cfg *config.Config, app *state.Store, hub *ws.Hub, gateway *offline.Gateway, log *logrus.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(app, cfg.JWTSecret, log)
	authHandler.RegisterRoutes(r)

	siteHandler := handler.NewSiteHandler(app, log)
	siteHandler.RegisterRoutes(r)

	businessHandler := handler.NewBusinessHandler(app, log)
	businessHandler.RegisterPublicRoutes(r)

	menuHandler := handler.NewMenuHandler(app, log)
	menuHandler.RegisterPublicRoutes(r)

	reservationHandler := handler.NewReservationHandler(app, log)
	reservationHandler.RegisterPublicRoutes(r)

	// WebSocket route (reservations topic gated by token internally)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Admin routes (require a session token)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterAdminRoutes(r)
		businessHandler.RegisterAdminRoutes(r)
		menuHandler.RegisterAdminRoutes(r)
		reservationHandler.RegisterAdminRoutes(r)
	})

	// Everything else is a static asset request served through the
	// network-first cache.
	r.NotFound(gateway.ServeHTTP)

	log.Info("router initialized with all handlers")
	return r
}
