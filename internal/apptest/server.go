// Package apptest provides an in-memory management API for tests.
package apptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/five82/appdeck/internal/manager"
)

// Action keys used by Fail and Calls.
const (
	ListInstalled = "list-installed"
	ListCatalog   = "list-catalog"
	Install       = "install"
	Uninstall     = "uninstall"
	Update        = "update"
)

// Server fakes the management API. Lifecycle requests are only recorded by
// default; tests move state forward explicitly with SetInstalled/SetCatalog,
// or set AutoApply to have accepted requests take effect immediately.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	catalog   map[string]manager.App
	installed map[string]bool
	failures  map[string]int
	calls     map[string]int
	requests  []string
	autoApply bool
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		catalog:   make(map[string]manager.App),
		installed: make(map[string]bool),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/apps", s.handleList)
	r.Post("/v1/apps/{id}/{action}", s.handleAction)
	return r
}

// SetCatalog replaces the catalog.
func (s *Server) SetCatalog(apps ...manager.App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = make(map[string]manager.App, len(apps))
	for _, app := range apps {
		s.catalog[app.ID] = app
	}
}

// SetInstalled replaces the set of installed ids. Ids must exist in the catalog
// to be listed.
func (s *Server) SetInstalled(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.installed[id] = true
	}
}

// SetUpdateAvailable flips the catalog flag for id.
func (s *Server) SetUpdateAvailable(id string, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.catalog[id]
	if !ok {
		return
	}
	app.UpdateAvailable = available
	s.catalog[id] = app
}

// AutoApply makes accepted lifecycle requests take effect at once.
func (s *Server) AutoApply(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoApply = enabled
}

// Fail makes every request for action answer with status until cleared with
// a zero status.
func (s *Server) Fail(action string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, action)
		return
	}
	s.failures[action] = status
}

// Calls reports how many requests for action were received.
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// Requests returns "METHOD path" for every request in arrival order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	action := ListCatalog
	if r.URL.Query().Get("installed") == "1" {
		action = ListInstalled
	}
	if s.record(r, action, w) {
		return
	}

	s.mu.Lock()
	apps := make([]manager.App, 0, len(s.catalog))
	for id, app := range s.catalog {
		if action == ListInstalled && !s.installed[id] {
			continue
		}
		apps = append(apps, app)
	}
	s.mu.Unlock()

	// Catalog order is unspecified upstream; keep it stable for tests.
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(apps)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")
	switch action {
	case Install, Uninstall, Update:
	default:
		http.NotFound(w, r)
		return
	}
	if s.record(r, action, w) {
		return
	}

	s.mu.Lock()
	_, known := s.catalog[id]
	if known && s.autoApply {
		switch action {
		case Install:
			s.installed[id] = true
		case Uninstall:
			delete(s.installed, id)
		case Update:
			app := s.catalog[id]
			app.UpdateAvailable = false
			s.catalog[id] = app
		}
	}
	s.mu.Unlock()

	if !known {
		http.Error(w, "unknown app", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// record counts the request and writes the configured failure, reporting
// whether the request was answered.
func (s *Server) record(r *http.Request, action string, w http.ResponseWriter) bool {
	s.mu.Lock()
	s.calls[action]++
	s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
	status := s.failures[action]
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return true
	}
	return false
}
