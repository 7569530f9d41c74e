// Package health serves liveness, readiness and detailed health endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/internal/logger"
)

const checkTimeout = 5 * time.Second

// Status is the /health response body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Check is the outcome of one named check.
type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// CheckFunc reports whether a dependency is usable and why.
type CheckFunc func(ctx context.Context) (bool, string)

// Server exposes /health, /ready and /live.
type Server struct {
	port    int
	version string
	logger  logger.LoggerInterface

	mu     sync.RWMutex
	checks map[string]CheckFunc
	server *http.Server
}

func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		logger:  log,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces a named check.
func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Handler returns the endpoint mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	return mux
}

// Start serves in the background. A port of 0 disables the server.
func (s *Server) Start(ctx context.Context) {
	if s.port == 0 {
		return
	}
	s.server = &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn(ctx, "health server stopped", "error", err)
		}
	}()
	s.logger.Info(ctx, "health server started", "port", s.port)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Run executes every check concurrently.
func (s *Server) Run(ctx context.Context) map[string]Check {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	funcs := make([]CheckFunc, len(names))
	sort.Strings(names)
	for i, name := range names {
		funcs[i] = s.checks[name]
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := make([]Check, len(names))
	var g errgroup.Group
	for i, check := range funcs {
		g.Go(func() error {
			healthy, msg := check(ctx)
			results[i] = Check{Healthy: healthy, Message: msg}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Check, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:    "ok",
		Checks:    s.Run(r.Context()),
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	for _, c := range status.Checks {
		if !c.Healthy {
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.Run(r.Context()) {
		if !c.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
