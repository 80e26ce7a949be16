package dump1090

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeFetcher serves documents from memory. A path with no document is a
// failed fetch.
type fakeFetcher struct {
	docs  map[string]string
	calls []string
}

func newFakeFetcher(docs map[string]string) *fakeFetcher {
	if docs == nil {
		docs = make(map[string]string)
	}
	return &fakeFetcher{docs: docs}
}

func (f *fakeFetcher) Fetch(ctx context.Context, path string, v any) bool {
	f.calls = append(f.calls, path)
	if ctx.Err() != nil {
		return false
	}
	doc, ok := f.docs[path]
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(doc), v) == nil
}

// fixtureServer is an httptest receiver. Paths listed in broken have their
// connection dropped mid-request.
type fixtureServer struct {
	*httptest.Server

	mu     sync.Mutex
	docs   map[string]string
	broken map[string]bool
	hits   map[string]int
}

func newFixtureServer(t *testing.T, docs map[string]string) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{
		docs:   docs,
		broken: make(map[string]bool),
		hits:   make(map[string]int),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fixtureServer) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/data/")

	fs.mu.Lock()
	fs.hits[path]++
	doc, ok := fs.docs[path]
	broken := fs.broken[path]
	fs.mu.Unlock()

	if broken {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func (fs *fixtureServer) set(path, doc string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.docs[path] = doc
}

func (fs *fixtureServer) breakPath(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.broken[path] = true
}

func (fs *fixtureServer) hitCount(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func (fs *fixtureServer) dataURL() string {
	return fs.URL + "/data"
}

func hexes(list []Aircraft) []string {
	out := make([]string, len(list))
	for i, ac := range list {
		out[i] = ac.Hex
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}
