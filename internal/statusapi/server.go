// Package statusapi is the running agent's local HTTP surface: status,
// recent deliveries and Prometheus metrics for anyone on the machine, and the
// control routes that one-shot CLI commands use to drive the agent instead
// of opening the session store themselves.
//
// It binds to loopback and carries no authentication. Mutating routes
// require the ClientHeader, which a browser cannot send cross-origin
// without a preflight the server never answers.
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/delivery"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/state"
)

// Controller is the agent surface behind the routes. *bridge.Bridge
// satisfies it.
type Controller interface {
	Status() state.Snapshot
	Config() bridge.Settings
	Login(ctx context.Context, email, password, serverURL string) (bridge.LoginResult, error)
	Logout() error
	CheckLicense(ctx context.Context) license.State
	SyncDevices(ctx context.Context) devices.Map
	SelectFolder(path string) (string, error)
	SetDeviceFolder(id, folder string) error
	SetConfig(patch bridge.SettingsPatch) error
	CheckUpdates(ctx context.Context) (bridge.UpdateInfo, error)
	DownloadUpdate(ctx context.Context) (string, error)
}

// History lists recent delivery attempts, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]delivery.Attempt, error)
}

const (
	defaultHistory = 50
	maxHistory     = 500
)

// Server is a suture service wrapping the HTTP listener.
type Server struct {
	addr    string
	ctrl    Controller
	history History
	logger  zerolog.Logger
	router  chi.Router

	mu sync.Mutex
	ln net.Listener
}

// New builds the router. history may be nil when the journal is disabled.
func New(addr string, ctrl Controller, history History, logger zerolog.Logger) *Server {
	s := &Server{
		addr:    addr,
		ctrl:    ctrl,
		history: history,
		logger:  logger.With().Str("component", "statusapi").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	r.Get("/config", s.handleConfig)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requireClient)
		r.Post("/session", s.handleLogin)
		r.Delete("/session", s.handleLogout)
		r.Post("/license/check", s.handleCheckLicense)
		r.Post("/devices/sync", s.handleSyncDevices)
		r.Put("/devices/{id}/folder", s.handleSetFolder)
		r.Patch("/config", s.handleSetConfig)
		r.Post("/update/check", s.handleCheckUpdates)
		r.Post("/update/download", s.handleDownloadUpdate)
	})
	s.router = r
	return s
}

// Listen binds the address now so the caller learns about a port conflict
// before anything else starts. Serve uses the bound listener.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Close releases a listener bound by Listen that Serve never took over.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	return err
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// String implements fmt.Stringer for supervisor logs.
func (s *Server) String() string { return "statusapi" }

// Serve listens until ctx is canceled. It implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	// A restart after a failure binds again.
	s.ln = nil
	s.mu.Unlock()
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Msgf("status endpoint listening on %s", ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("status endpoint shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status endpoint: %w", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewStatusView(s.ctrl.Status()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery journal disabled"})
		return
	}
	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistory)
	}
	attempts, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("read delivery journal")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	if attempts == nil {
		attempts = []delivery.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
