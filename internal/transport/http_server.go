package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dpshade/permahub/internal/metrics"
)

// maxMessageBytes bounds a POST /v1/messages body.
const maxMessageBytes = 1 << 20

// HTTPServer exposes a Handler over HTTP.
type HTTPServer struct {
	handler Handler
	verify  func(Message) error
	ready   func() error
	logger  *slog.Logger
	mux     *http.ServeMux
}

// ServerOption configures an HTTPServer.
type ServerOption func(*HTTPServer)

// WithVerifier rejects messages for which verify returns an error.
func WithVerifier(verify func(Message) error) ServerOption {
	return func(s *HTTPServer) { s.verify = verify }
}

// WithReadiness makes /readyz report 503 while ready returns an error.
func WithReadiness(ready func() error) ServerOption {
	return func(s *HTTPServer) { s.ready = ready }
}

// WithServerLogger sets the request logger. Default: slog.Default().
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *HTTPServer) { s.logger = l }
}

// NewHTTPServer creates the server and registers its routes.
func NewHTTPServer(h Handler, opts ...ServerOption) *HTTPServer {
	s := &HTTPServer{handler: h, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mux.HandleFunc("POST /v1/messages", s.handleMessage)
	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.HandleFunc("GET /readyz", s.readyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *HTTPServer) Handler() http.Handler {
	return loggingMiddleware(s.logger, s.mux)
}

// POST /v1/messages
func (s *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var m Message
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&m); err != nil {
		metrics.Messages.WithLabelValues("unknown", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Error: fmt.Sprintf("invalid JSON: %s", err)})
		return
	}
	if m.Action == "" {
		metrics.Messages.WithLabelValues("unknown", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusError, Error: "action is required"})
		return
	}
	if s.verify != nil {
		if err := s.verify(m); err != nil {
			metrics.Messages.WithLabelValues(m.Action, "unauthorized").Inc()
			writeJSON(w, http.StatusUnauthorized, Response{Status: StatusError, Error: err.Error()})
			return
		}
	}

	resp := s.handler.HandleMessage(r.Context(), m)
	status := http.StatusOK
	if resp.Status != StatusOK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// GET /healthz: always 200.
func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 while the readiness check fails.
func (s *HTTPServer) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
