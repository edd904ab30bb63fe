package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toozej/go-thoroughbred/internal/metrics"
	"github.com/toozej/go-thoroughbred/internal/middleware"
	"github.com/toozej/go-thoroughbred/internal/services/browser"
	"github.com/toozej/go-thoroughbred/internal/services/scraper"
	"github.com/toozej/go-thoroughbred/internal/services/search"
	"github.com/toozej/go-thoroughbred/internal/store"
	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/config"
	"github.com/toozej/go-thoroughbred/pkg/logging"
)

// Dependencies are the collaborators the HTTP API drives.
type Dependencies struct {
	Fetcher  types.HorseDetailFetcher
	Store    types.HorseStore
	Searcher types.HorseSearcher
	// Metrics is optional; without it no /metrics route is mounted.
	Metrics *metrics.Recorder
}

// Server represents the HTTP server
type Server struct {
	router             *http.ServeMux
	deps               Dependencies
	config             *config.Config
	logger             *logging.Logger
	rateLimiter        *middleware.RateLimiter
	securityMiddleware *middleware.SecurityMiddleware
	loggingMiddleware  *middleware.LoggingMiddleware
	routesOnce         sync.Once

	mu          sync.Mutex
	server      *http.Server
	stopCleanup context.CancelFunc
}

// NewServer creates a new server instance with all components properly wired
func NewServer(cfg *config.Config, logger *logging.Logger, deps Dependencies) *Server {
	if cfg == nil {
		panic("configuration cannot be nil")
	}
	if logger == nil {
		logger = logging.NewLogger(cfg.Logging)
	}

	requestsPerSecond := cfg.Security.RateLimit.RequestsPerSecond
	if requestsPerSecond == 0 {
		requestsPerSecond = 10
	}
	burst := cfg.Security.RateLimit.Burst
	if burst == 0 {
		burst = 20
	}

	rateLimiter := middleware.NewRateLimiter(float64(requestsPerSecond), burst)
	securityMiddleware := middleware.NewSecurityMiddleware(logger, rateLimiter)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)

	logger.WithComponent("server").WithFields(logrus.Fields{
		"rate_limit_rps":   requestsPerSecond,
		"rate_limit_burst": burst,
		"store_driver":     cfg.Store.Driver,
		"metrics_enabled":  deps.Metrics != nil,
		"http_logging":     cfg.Logging.EnableHTTP,
	}).Info("Server components initialized successfully")

	return &Server{
		router:             http.NewServeMux(),
		deps:               deps,
		config:             cfg,
		logger:             logger,
		rateLimiter:        rateLimiter,
		securityMiddleware: securityMiddleware,
		loggingMiddleware:  loggingMiddleware,
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.setupRoutes)
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	go s.rateLimiter.Run(ctx)

	// A fetch holds the response open for a whole browser navigation.
	writeTimeout := s.config.Browser.NavigationTimeout + 30*time.Second

	srv := &http.Server{
		Addr:              s.config.Server.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.stopCleanup = cancel
	s.mu.Unlock()

	s.logger.WithComponent("server").WithFields(logrus.Fields{
		"address": s.config.Server.Address(),
	}).Info("Starting HTTP server")
	return srv.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.WithComponent("server").Info("Shutting down HTTP server")
	s.mu.Lock()
	srv, cancel := s.server, s.stopCleanup
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// setupRoutes mounts the API behind logging -> security headers -> rate
// limit -> input validation. Health and metrics stay outside the chain.
func (s *Server) setupRoutes() {
	api := http.NewServeMux()
	s.route(api, "GET /api/horses/search", s.handleSearch)
	s.route(api, "GET /api/horses/{id}", s.handleFetch)
	s.route(api, "POST /api/horses/{id}/refresh", s.handleRefresh)
	s.route(api, "GET /api/horses/{id}/stored", s.handleStored)

	var handler http.Handler = api
	handler = s.securityMiddleware.SecurityHeaders(
		s.securityMiddleware.RateLimit(
			s.securityMiddleware.InputValidation(handler),
		),
	)
	if s.config.Logging.EnableHTTP {
		handler = s.loggingMiddleware.LogRequests(handler)
	}
	s.router.Handle("/api/", handler)

	s.router.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Metrics != nil && s.config.Metrics.Enabled {
		path := s.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle("GET "+path, s.deps.Metrics.Handler())
	}
}

// route registers h under pattern and records per-route request metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if s.deps.Metrics == nil {
		mux.HandleFunc(pattern, h)
		return
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		s.deps.Metrics.ObserveRequest(pattern, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// handleFetch fetches a horse from the source without persisting it.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.deps.Fetcher.FetchHorseDetail(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "Failed to fetch horse", err)
		return
	}
	s.writeJSONResponse(w, types.APIResponse{Success: true, Data: detail}, http.StatusOK)
}

// handleRefresh fetches a horse and fully replaces its stored records.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := r.PathValue("id")

	detail, err := s.deps.Fetcher.FetchHorseDetail(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "Failed to fetch horse", err)
		return
	}
	if err := s.deps.Store.ReplaceHorseDetail(r.Context(), id, detail); err != nil {
		s.writeError(w, r, "Failed to store horse", err)
		return
	}

	resp := types.RefreshResponse{
		ExternalID:          id,
		RacesStored:         len(detail.Races),
		RegistrationsStored: len(detail.Registrations),
		DurationMS:          time.Since(start).Milliseconds(),
	}
	s.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"component":     "server",
		"operation":     "refresh_horse",
		"external_id":   id,
		"races":         resp.RacesStored,
		"registrations": resp.RegistrationsStored,
	}).Info("Horse refreshed")

	s.writeJSONResponse(w, types.APIResponse{Success: true, Data: resp}, http.StatusOK)
}

func (s *Server) handleStored(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Store.GetHorseDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "Failed to load horse", err)
		return
	}
	s.writeJSONResponse(w, types.APIResponse{Success: true, Data: detail}, http.StatusOK)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			s.writeJSONError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	matches, err := s.deps.Searcher.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		s.writeError(w, r, "Search failed", err)
		return
	}
	s.writeJSONResponse(w, types.APIResponse{Success: true, Data: matches}, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, types.APIResponse{
		Success: true,
		Data:    map[string]string{"status": "ok"},
	}, http.StatusOK)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scraper.ErrInvalidHorseID), errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, store.ErrInvalidDetail):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, browser.ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, browser.ErrNavigation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	entry := s.logger.WithContext(r.Context()).WithField("component", "server").WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}
	s.writeJSONError(w, message+": "+err.Error(), status)
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("component", "server").WithError(err).Error("Failed to encode JSON response")
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSONResponse(w, types.APIResponse{Success: false, Error: message}, statusCode)
}
