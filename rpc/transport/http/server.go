package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/http")

// SetsFunc returns the metric sets to expose. It is called on every scrape,
// so sets created after the server started are included.
type SetsFunc func() []*metrics.Set

// HealthFunc reports whether the key-value server is able to serve requests
type HealthFunc func() error

// MetricsServer exposes Prometheus metrics and a health check over HTTP
type MetricsServer struct {
	endpoint string
	sets     SetsFunc
	health   HealthFunc
	debug    bool

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewMetricsServer creates a metrics server listening on endpoint. sets and
// health may be nil.
func NewMetricsServer(endpoint string, sets SetsFunc, health HealthFunc, debug bool) *MetricsServer {
	return &MetricsServer{
		endpoint: endpoint,
		sets:     sets,
		health:   health,
		debug:    debug,
		ready:    make(chan struct{}),
	}
}

// Serve runs the HTTP server until ctx is cancelled
func (s *MetricsServer) Serve(ctx context.Context) error {
	mux := http.NewServeMux()

	if s.debug {
		mux.HandleFunc("GET /metrics", loggerMiddleware(s.handleMetrics))
		mux.HandleFunc("GET /health", loggerMiddleware(s.handleHealth))
	} else {
		mux.HandleFunc("GET /metrics", s.handleMetrics)
		mux.HandleFunc("GET /health", s.handleHealth)
	}

	listener, err := net.Listen("tcp", s.endpoint)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Starting metrics server on %s", listener.Addr())

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Ready is closed once the server listens
func (s *MetricsServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listen address, or nil if the server is not listening yet
func (s *MetricsServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

// handleMetrics writes the process metrics followed by all registered sets
func (s *MetricsServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
	if s.sets == nil {
		return
	}
	for _, set := range s.sets() {
		set.WritePrometheus(w)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth answers 200 if the health func reports no error, 503 otherwise
func (s *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	res, code := healthResponse{Status: "ok"}, http.StatusOK
	if s.health != nil {
		if err := s.health(); err != nil {
			res, code = healthResponse{Status: "unavailable", Error: err.Error()}, http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(res)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
