package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/handler"
	mw "github.com/brasaviva/api/internal/middleware"
	"github.com/brasaviva/api/internal/state"
	"github.com/brasaviva/api/internal/store/memstore"
	"github.com/brasaviva/api/internal/syncer"
)

const testJWTSecret = "test-secret"

// newTestEnv wires the full stack below the HTTP layer: in-memory
// document store, sync adapter, state store, and a router with the
// public and admin routes.
func newTestEnv(t *testing.T) (*state.Store, *chi.Mux) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	adapter := syncer.New(memstore.New(), log)
	app := state.New(adapter, state.NewMemorySession())
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start state store: %v", err)
	}
	t.Cleanup(app.Close)

	r := chi.NewRouter()

	authHandler := handler.NewAuthHandler(app, testJWTSecret, log)
	authHandler.RegisterRoutes(r)

	siteHandler := handler.NewSiteHandler(app, log)
	siteHandler.RegisterRoutes(r)

	businessHandler := handler.NewBusinessHandler(app, log)
	businessHandler.RegisterPublicRoutes(r)

	menuHandler := handler.NewMenuHandler(app, log)
	menuHandler.RegisterPublicRoutes(r)

	reservationHandler := handler.NewReservationHandler(app, log)
	reservationHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(testJWTSecret))
		authHandler.RegisterAdminRoutes(r)
		businessHandler.RegisterAdminRoutes(r)
		menuHandler.RegisterAdminRoutes(r)
		reservationHandler.RegisterAdminRoutes(r)
	})

	return app, r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return doAuthedRequest(t, router, method, path, body, "")
}

func doAuthedRequest(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// newRecordedRequest builds a bodyless request plus a recorder, for
// tests that need to shape the request before dispatching it.
func newRecordedRequest(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	return httptest.NewRequest(method, path, nil), httptest.NewRecorder()
}

// login obtains a session token with the default admin password.
func login(t *testing.T, router http.Handler) string {
	t.Helper()

	rr := doRequest(t, router, "POST", "/api/login", map[string]string{"password": "admin123"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

// eventually polls until cond holds. Mutations reach the snapshot via
// the subscription round trip, which runs on a background goroutine.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
