package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Backend is a scripted stand-in for the remote school API.
//
// Routes are registered as "METHOD /path". A path ending in "/" matches any
// path with that prefix (for /updateFeeStatus/{roll}). Unregistered routes
// answer 404. Every hit is counted against the registered route.
type Backend struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	bodies map[string][]string
}

// NewBackend starts a Backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
		bodies: make(map[string][]string),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Handle registers h for method and path.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// JSON registers a route answering status with body encoded as JSON.
func (b *Backend) JSON(method, path string, status int, body any) {
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Fail registers a route answering status with a plain error body.
func (b *Backend) Fail(method, path string, status int) {
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend failure", status)
	})
}

// Hits reports how many requests matched the route.
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// TotalHits reports every request the backend received.
func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

// Bodies returns the request bodies received on the route, in order.
func (b *Backend) Bodies(method, path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies[method+" "+path]...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	key, h := b.match(r.Method, r.URL.EscapedPath())
	if h == nil {
		b.mu.Lock()
		b.hits["unmatched"]++
		b.mu.Unlock()
		http.NotFound(w, r)
		return
	}

	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	b.mu.Lock()
	b.hits[key]++
	b.bodies[key] = append(b.bodies[key], string(body))
	b.mu.Unlock()

	h(w, r)
}

func (b *Backend) match(method, path string) (string, http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.routes[method+" "+path]; ok {
		return method + " " + path, h
	}
	for key, h := range b.routes {
		m, p, _ := strings.Cut(key, " ")
		if m == method && strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return key, h
		}
	}
	return "", nil
}
