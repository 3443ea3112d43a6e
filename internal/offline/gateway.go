// Package offline fronts the static asset origin with a
// network-first, cache-fallback gateway so the site keeps serving its
// last good assets when the origin is unreachable. Record-store
// traffic is never intercepted here; it fails or succeeds on its own
// terms.
package offline

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AppShell is the cached fallback for navigations with no cached
// match of their own.
const AppShell = "/"

// PrecacheURLs is the fixed manifest of baseline assets fetched at
// install time.
var PrecacheURLs = []string{
	"/",
	"/index.html",
	"/manifest.webmanifest",
	"/icons/icon-192.svg",
	"/icons/icon-512.svg",
}

// Fetcher performs the origin request. Satisfied by *http.Client.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config wires a Gateway.
type Config struct {
	// Origin is the base URL of the asset origin.
	Origin *url.URL

	// Generation tags the active cache. Bumping it on deploy makes
	// Activate purge every other generation.
	Generation string

	// BypassHosts are host substrings whose requests pass straight
	// through, uncached (the record store's own endpoints).
	BypassHosts []string

	Client Fetcher
	Log    *logrus.Logger
}

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// Gateway implements the interception policy: GET only, network
// first, cached copy only when the network attempt fails outright.
type Gateway struct {
	origin     *url.URL
	generation string
	bypass     []string
	client     Fetcher
	log        *logrus.Entry

	mu     sync.RWMutex
	caches map[string]map[string]*cachedResponse // generation -> path -> response
}

// New creates a Gateway. Call Install and Activate before serving.
func New(cfg Config) *Gateway {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{
		origin:     cfg.Origin,
		generation: cfg.Generation,
		bypass:     cfg.BypassHosts,
		client:     client,
		log:        log.WithField("component", "offline"),
		caches:     map[string]map[string]*cachedResponse{cfg.Generation: {}},
	}
}

// Install prefetches the baseline asset manifest into the current
// generation. A failed prefetch is reported but leaves the gateway
// usable; the asset is simply cached on first successful fetch.
func (g *Gateway) Install(ctx context.Context) error {
	var firstErr error
	for _, path := range PrecacheURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.originURL(path), nil)
		if err != nil {
			return errors.Wrapf(err, "precache %s", path)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			g.log.WithError(err).WithField("path", path).Warn("precache fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		g.storeResponse(path, resp)
		resp.Body.Close()
	}
	return firstErr
}

// Activate purges every cache generation other than the current one.
func (g *Gateway) Activate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for gen := range g.caches {
		if gen != g.generation {
			delete(g.caches, gen)
		}
	}
	if g.caches[g.generation] == nil {
		g.caches[g.generation] = map[string]*cachedResponse{}
	}
}

// ServeHTTP applies the interception policy to one request.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || g.bypassed(r) {
		g.passthrough(w, r)
		return
	}

	key := cacheKey(r)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, g.originURL(key), nil)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp, err := g.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		body := g.storeResponse(key, resp)
		writeResponse(w, resp.StatusCode, resp.Header, body)
		return
	}

	// Network down: serve the cached match, then the app shell for
	// navigations, then a synthesized offline response.
	if cached := g.lookup(key); cached != nil {
		writeResponse(w, cached.status, cached.header, cached.body)
		return
	}
	if isNavigation(r) {
		if shell := g.lookup(AppShell); shell != nil {
			writeResponse(w, shell.status, shell.header, shell.body)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("Offline"))
}

// passthrough proxies without touching the cache. Used for non-GET
// requests and record-store-bound URLs.
func (g *Gateway) passthrough(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, g.originURL(cacheKey(r)), r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()

	resp, err := g.client.Do(req)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	writeResponse(w, resp.StatusCode, resp.Header, body)
}

// storeResponse caches a definite-success response and returns its
// body either way.
func (g *Gateway) storeResponse(key string, resp *http.Response) []byte {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.log.WithError(err).WithField("path", key).Warn("read origin response")
		return nil
	}

	if resp.StatusCode == http.StatusOK {
		g.mu.Lock()
		if g.caches[g.generation] == nil {
			g.caches[g.generation] = map[string]*cachedResponse{}
		}
		g.caches[g.generation][key] = &cachedResponse{
			status: resp.StatusCode,
			header: resp.Header.Clone(),
			body:   body,
		}
		g.mu.Unlock()
	}
	return body
}

func (g *Gateway) lookup(key string) *cachedResponse {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.caches[g.generation][key]
}

func (g *Gateway) bypassed(r *http.Request) bool {
	host := r.URL.Host
	if host == "" {
		host = r.Host
	}
	for _, pattern := range g.bypass {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}

func (g *Gateway) originURL(pathAndQuery string) string {
	ref, err := url.Parse(pathAndQuery)
	if err != nil {
		return g.origin.String()
	}
	return g.origin.ResolveReference(ref).String()
}

func cacheKey(r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}

func isNavigation(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeResponse(w http.ResponseWriter, status int, header http.Header, body []byte) {
	for k, vv := range header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
	io.Copy(w, bytes.NewReader(body))
}
