// Package web serves the cached feed over HTTP and exposes the manual
// refresh endpoint.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"schedics/internal/cache"
	"schedics/internal/config"
	"schedics/internal/feed"
	appLog "schedics/internal/log"
	"schedics/internal/source"
)

// Server owns the feed cache for the lifetime of the process. Handlers
// read the cache concurrently; rebuilds go through a single mutex so at
// most one pipeline run is in flight.
type Server struct {
	cfg   *config.Config
	gen   *feed.Generator
	store *cache.Store
	mux   *http.ServeMux

	// rebuildMu serializes pipeline runs. A refresh request that finds
	// it held is rejected rather than queued.
	rebuildMu sync.Mutex
}

func NewServer(cfg *config.Config, gen *feed.Generator) *Server {
	s := &Server{
		cfg:   cfg,
		gen:   gen,
		store: cache.NewStore(),
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /schedule.ics", s.handleSchedule)
	s.mux.HandleFunc("POST /refresh", s.handleRefresh)
}

// Handler returns the server's http.Handler, wrapped with basic auth
// when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Server.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Start serves until ctx is canceled. It optionally builds the feed once
// before accepting traffic and schedules periodic rebuilds when a cron
// expression is configured.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Server.BuildOnStart {
		if err := s.rebuild(ctx); err != nil {
			// Keep serving: the cache stays empty and GET answers 503
			// (or lazily builds) until a refresh succeeds.
			appLog.Error("initial build failed", err)
		}
	}

	if spec := s.cfg.Server.Refresh; spec != "" {
		c := cron.New()
		_, err := c.AddFunc(spec, func() {
			if err := s.tryRebuild(context.Background()); err != nil {
				appLog.Error("scheduled rebuild failed", err)
			}
		})
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		appLog.Info("periodic refresh scheduled", "cron", spec)
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.SourceTimeout() + 10*time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Server.Listen)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	f, ok := s.store.Get()
	if !ok && s.cfg.Server.LazyBuild {
		if err := s.tryRebuild(r.Context()); err != nil && !errors.Is(err, errRebuildInFlight) {
			writeError(w, statusForError(err), err.Error())
			return
		}
		f, ok = s.store.Get()
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "feed not built yet")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Last-Modified", f.GeneratedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Body); err != nil {
		appLog.Error("failed to write feed response", err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.tryRebuild(r.Context()); err != nil {
		if errors.Is(err, errRebuildInFlight) {
			writeError(w, http.StatusConflict, "a refresh is already in progress")
			return
		}
		writeError(w, statusForError(err), err.Error())
		return
	}

	f, _ := s.store.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"generated_at": f.GeneratedAt.UTC().Format(time.RFC3339),
		"bytes":        len(f.Body),
	})
}

var errRebuildInFlight = errors.New("rebuild already in progress")

// tryRebuild runs one pipeline pass unless another is in flight.
func (s *Server) tryRebuild(ctx context.Context) error {
	if !s.rebuildMu.TryLock() {
		return errRebuildInFlight
	}
	defer s.rebuildMu.Unlock()
	return s.rebuild(ctx)
}

// rebuild replaces the cache only after the whole pipeline succeeded, so
// the previous feed stays authoritative on any failure.
func (s *Server) rebuild(ctx context.Context) error {
	f, err := s.gen.Generate(ctx)
	if err != nil {
		return err
	}
	s.store.Set(f.Body, f.GeneratedAt)
	appLog.Info("feed rebuilt", "bytes", len(f.Body), "generated_at", f.GeneratedAt.UTC().Format(time.RFC3339))
	return nil
}

// statusForError maps pipeline failures to HTTP statuses: upstream
// unavailability is a gateway problem, everything else (format drift,
// unparseable rows under the abort policy) is a server-side 500.
func statusForError(err error) int {
	if errors.Is(err, source.ErrUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.Server.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware protects all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.Server.BasicAuth.Username
	password := s.cfg.Server.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedics", charset="UTF-8"`)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
