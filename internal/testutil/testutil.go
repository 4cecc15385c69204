// Package testutil hosts the fake ProMentor backend shared by transport,
// auth and repository tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeBackend is an httptest server with per-route handlers and call
// counting, so tests can assert exactly how many requests an operation
// issued (the retry contract depends on it).
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

// NewFakeBackend starts the fake backend and shuts it down at test end.
// Requests to routes without a handler answer 404 with an error body.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.dispatch))
	t.Cleanup(b.Server.Close)

	return b
}

// URL returns the backend base address.
func (b *FakeBackend) URL() string { return b.Server.URL }

// Handle registers (or replaces) the handler for "METHOD /path".
func (b *FakeBackend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method+" "+path] = h
}

// Calls reports how many times "METHOD /path" has been requested.
func (b *FakeBackend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func (b *FakeBackend) dispatch(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.calls[key]++
	h, ok := b.handlers[key]
	b.mu.Unlock()

	if !ok {
		JSONResponse(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h(w, r)
}

// JSONResponse writes v as a JSON body with the given status.
func JSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONHandler builds a handler that always answers status with body v.
func JSONHandler(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, status, v)
	}
}

// BearerToken extracts the bearer token from a request, or "".
func BearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
