// Package web serves the choir app's screens as HTTP resources. Every
// route except /health, /metrics and /api/login sits behind the auth gate.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/assistant"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/auth"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/metrics"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/store"
)

// Deps are the collaborators a Server needs. Generator and Importer may be
// nil; the assistant then always apologises and feed refresh is disabled.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Gate      *auth.Gate
	Generator assistant.Generator
	Importer  *ics.Importer
}

// Server provides the HTTP API.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	gate     *auth.Gate
	gen      assistant.Generator
	importer *ics.Importer
	loc      *time.Location
	router   *mux.Router

	// One assistant transcript per account.
	chatMu sync.Mutex
	chats  map[string]*assistant.Assistant
}

// NewServer constructs a Server and registers its routes.
func NewServer(d Deps) *Server {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	gen := d.Generator
	if gen == nil {
		gen = unavailable{}
	}
	s := &Server{
		cfg:      cfg,
		store:    d.Store,
		gate:     d.Gate,
		gen:      gen,
		importer: d.Importer,
		loc:      resolveLocationOrUTC(cfg.Timezone),
		router:   mux.NewRouter(),
		chats:    map[string]*assistant.Assistant{},
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with metrics and the auth gate applied.
func (s *Server) Handler() http.Handler {
	return metrics.InstrumentHandler(s.router)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	gated := r.NewRoute().Subrouter()
	gated.Use(s.requireSession)

	gated.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	gated.HandleFunc("/api/ordo", s.handleOrdo).Methods(http.MethodGet)
	gated.HandleFunc("/api/ordo.ics", s.handleOrdoICS).Methods(http.MethodGet)
	gated.HandleFunc("/print/ordo", s.handlePrintOrdo).Methods(http.MethodGet)

	gated.HandleFunc("/api/members/by-voice", s.handleMembersByVoice).Methods(http.MethodGet)
	mountResource(gated, "/api/members", members(s.store))

	gated.HandleFunc("/api/events/occurrences", s.handleOccurrences).Methods(http.MethodGet)
	gated.HandleFunc("/api/events.ics", s.handleEventsICS).Methods(http.MethodGet)
	mountResource(gated, "/api/events", events(s.store))

	mountResource(gated, "/api/songs", songs(s.store))

	gated.HandleFunc("/api/ledger/summary", s.handleLedgerSummary).Methods(http.MethodGet)
	mountResource(gated, "/api/transactions", transactions(s.store))

	gated.HandleFunc("/api/attendance", s.handleAttendance).Methods(http.MethodGet)
	gated.HandleFunc("/api/attendance", s.handleMark).Methods(http.MethodPut)
	gated.HandleFunc("/api/attendance", s.handleUnmark).Methods(http.MethodDelete)

	gated.HandleFunc("/api/assistant", s.handleTranscript).Methods(http.MethodGet)
	gated.HandleFunc("/api/assistant", s.handleAsk).Methods(http.MethodPost)
	gated.HandleFunc("/api/assistant", s.handleResetChat).Methods(http.MethodDelete)

	gated.HandleFunc("/api/feeds/refresh", s.handleRefreshFeeds).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Run serves on cfg.Listen until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type statusResponse struct {
	Mode    string         `json:"mode"`
	Offline bool           `json:"offline"`
	Banner  string         `json:"banner,omitempty"`
	Session auth.Session   `json:"session"`
	Counts  map[string]int `json:"counts"`
	Feeds   int            `json:"feeds"`
}

const offlineBanner = "Working offline: changes are saved on this device only."

// handleStatus feeds the app shell: storage mode, the offline banner and
// record counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	resp := statusResponse{
		Mode:    string(s.store.Mode()),
		Session: sessionFrom(r.Context()),
		Counts: map[string]int{
			"members":      len(snap.Members),
			"events":       len(snap.Events),
			"songs":        len(snap.Songs),
			"transactions": len(snap.Transactions),
			"attendance":   len(snap.Attendance),
		},
		Feeds: len(s.cfg.Feeds),
	}
	if s.store.Mode() == storage.ModeLocal {
		resp.Offline = true
		resp.Banner = offlineBanner
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshFeeds(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "no feeds configured")
		return
	}
	stats, err := s.importer.Refresh(r.Context())
	resp := map[string]any{"feeds": stats}
	if err != nil {
		appLog.Error("manual feed refresh failed", err)
		resp["error"] = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func resolveLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}
