package handler_test

import (
	"net/http"
	"testing"

	mw "github.com/brasaviva/api/internal/middleware"
)

func TestLogin_DefaultPassword(t *testing.T) {
	_, router := newTestEnv(t)

	rr := doRequest(t, router, "POST", "/api/login", map[string]string{"password": "admin123"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == mw.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if cookie.MaxAge != 0 || cookie.Expires.Unix() > 0 {
		t.Error("session cookie must not outlive the browser session")
	}
	if token, _ := decodeMap(t, rr)["token"].(string); token == "" {
		t.Error("expected a token in the response body")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, router := newTestEnv(t)

	rr := doRequest(t, router, "POST", "/api/login", map[string]string{"password": "nope"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticate_AcceptsCookie(t *testing.T) {
	_, router := newTestEnv(t)
	token := login(t, router)

	req, rr := newRecordedRequest(t, "GET", "/api/reservations")
	req.AddCookie(&http.Cookie{Name: mw.SessionCookie, Value: token})
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthenticate_RejectsGarbageToken(t *testing.T) {
	_, router := newTestEnv(t)

	rr := doAuthedRequest(t, router, "GET", "/api/reservations", nil, "not-a-jwt")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestChangePassword_RoundTrip(t *testing.T) {
	_, router := newTestEnv(t)
	token := login(t, router)

	rr := doAuthedRequest(t, router, "PUT", "/api/password", map[string]string{"password": "nuevo456"}, token)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	// The snapshot catches up via the subscription, after which the
	// old password stops working and the new one takes over.
	eventually(t, func() bool {
		rr := doRequest(t, router, "POST", "/api/login", map[string]string{"password": "nuevo456"})
		return rr.Code == http.StatusOK
	}, "new password never became effective")

	if rr := doRequest(t, router, "POST", "/api/login", map[string]string{"password": "admin123"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", rr.Code)
	}
}

func TestChangePassword_EmptyRejected(t *testing.T) {
	_, router := newTestEnv(t)
	token := login(t, router)

	rr := doAuthedRequest(t, router, "PUT", "/api/password", map[string]string{"password": ""}, token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	_, router := newTestEnv(t)
	login(t, router)

	rr := doRequest(t, router, "POST", "/api/logout", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rr.Code)
	}

	for _, c := range rr.Result().Cookies() {
		if c.Name == mw.SessionCookie {
			if c.MaxAge >= 0 {
				t.Errorf("cookie max-age = %d, want negative to expire it", c.MaxAge)
			}
			return
		}
	}
	t.Fatal("expected an expiring session cookie")
}
