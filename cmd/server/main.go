package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/config"
	"github.com/brasaviva/api/internal/offline"
	"github.com/brasaviva/api/internal/router"
	"github.com/brasaviva/api/internal/state"
	"github.com/brasaviva/api/internal/store"
	"github.com/brasaviva/api/internal/store/memstore"
	"github.com/brasaviva/api/internal/store/pgstore"
	"github.com/brasaviva/api/internal/syncer"
	"github.com/brasaviva/api/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store: Postgres when configured, in-memory otherwise.
	var docs store.Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("open pgstore")
		}
		defer pg.Close()
		docs = pg
		log.Info("using postgres document store")
	} else {
		docs = memstore.New()
		log.Warn("DATABASE_URL not set, using in-memory document store")
	}

	adapter := syncer.New(docs, log)
	app := state.New(adapter, state.NewMemorySession())
	if err := app.Start(ctx); err != nil {
		log.WithError(err).Fatal("start state store")
	}
	defer app.Close()

	// Real-time fan-out to connected browsers.
	hub := ws.NewHub()
	go hub.Run()
	app.OnChange(func(topic string) {
		broadcast(hub, app, topic, log)
	})

	// Offline-capable asset gateway.
	origin, err := url.Parse(cfg.AssetOrigin)
	if err != nil {
		log.WithError(err).Fatal("parse asset origin")
	}
	gateway := offline.New(offline.Config{
		Origin:      origin,
		Generation:  cfg.CacheGeneration,
		BypassHosts: cfg.RecordStoreHosts,
		Client:      &http.Client{Timeout: 10 * time.Second},
		Log:         log,
	})
	if err := gateway.Install(ctx); err != nil {
		log.WithError(err).Warn("asset precache incomplete")
	}
	gateway.Activate()

	r := router.New(cfg, app, hub, gateway, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithField("addr", cfg.Addr).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("serve")
	}
}

// broadcast ships the updated slice of the snapshot to every client
// subscribed to the topic.
func broadcast(hub *ws.Hub, app *state.Store, topic string, log *logrus.Logger) {
	snap := app.Snapshot()

	var payload any
	switch topic {
	case state.TopicBusiness:
		payload = map[string]string{
			"businessName": snap.BusinessName,
			"logoUrl":      snap.LogoURL,
			"phone":        snap.Phone,
			"address":      snap.Address,
			"slogan":       snap.Slogan,
		}
	case state.TopicMenu:
		payload = snap.MenuItems
	case state.TopicReservations:
		payload = snap.Reservations
	default:
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("topic", topic).Warn("encode broadcast")
		return
	}
	hub.Broadcast(topic, ws.Event{Type: topic + ".updated", Payload: data})
}
