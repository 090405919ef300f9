// Package web serves the generated export artifacts over HTTP in serve
// mode: the calendar feed, the lesson JSON, and a health probe.
package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/config"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/export"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
)

// Refresher re-runs the export pipeline and returns fresh artifacts.
type Refresher func(ctx context.Context) (*export.Result, error)

// Server caches the most recent export result and serves it. Refresh may
// run concurrently with requests; the cache swap is guarded by a mutex.
type Server struct {
	cfg     *config.Config
	refresh Refresher
	mux     *http.ServeMux

	mu        sync.RWMutex
	result    *export.Result
	updatedAt time.Time
}

// NewServer constructs a Server around the given refresher.
func NewServer(cfg *config.Config, refresh Refresher) *Server {
	s := &Server{
		cfg:     cfg,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/timetable.ics", s.handleFeed)
	s.mux.HandleFunc("/timetable.json", s.handleJSON)
}

// Handler returns the HTTP handler, wrapped with Basic Auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		log.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh runs the pipeline and swaps the cached artifacts on success. A
// failed refresh keeps the previous result serving.
func (s *Server) Refresh(ctx context.Context) error {
	res, err := s.refresh(ctx)
	if err != nil {
		log.Error("export refresh failed", err)
		return err
	}

	s.mu.Lock()
	s.result = res
	s.updatedAt = time.Now()
	s.mu.Unlock()

	log.Info("export refreshed", "events", len(res.Descriptors))
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware protects all endpoints except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Stundenplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, export.MIMEType+"; charset=utf-8", func(res *export.Result) []byte {
		return res.Feed
	})
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "application/json; charset=utf-8", func(res *export.Result) []byte {
		return res.JSON
	})
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, contentType string, pick func(*export.Result) []byte) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	res := s.result
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	if res == nil {
		http.Error(w, "export not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(pick(res))
	}
}
