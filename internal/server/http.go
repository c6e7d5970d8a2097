package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/webhook"
)

const (
	// DefaultHTTPAddr is the default address of the agent HTTP server.
	DefaultHTTPAddr = ":8080"

	// MCPPath is where the streamable-HTTP MCP endpoint is mounted.
	MCPPath = "/mcp"
)

// HTTPServerConfig configures the agent HTTP server.
type HTTPServerConfig struct {
	Addr string

	// Webhook is mounted on /webhook when set.
	Webhook http.Handler
	// Health registers /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker
	// MCP is mounted on /mcp when set.
	MCP http.Handler

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// HTTPServer serves the webhook, health probes and optionally MCP.
type HTTPServer struct {
	httpServer *http.Server
	handler    http.Handler
	addr       string
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer builds the route table.
func NewHTTPServer(cfg HTTPServerConfig) *HTTPServer {
	if cfg.Addr == "" {
		cfg.Addr = DefaultHTTPAddr
	}

	mux := http.NewServeMux()
	if cfg.Webhook != nil {
		mux.Handle(webhook.Path, cfg.Webhook)
	}
	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(mux)
	}
	if cfg.MCP != nil {
		mux.Handle(MCPPath, cfg.MCP)
	}

	handler := requestMetrics(cfg.Metrics, mux)
	return &HTTPServer{
		handler: handler,
		addr:    cfg.Addr,
		logger:  logging.WithComponent(logging.OrDefault(cfg.Logger), "http"),
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler returns the instrumented route table.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens and serves until Shutdown. It blocks and returns
// http.ErrServerClosed after a clean shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestMetrics records method, path, status and duration of each request.
// MCP streams are long-lived, so only their completion is recorded.
func requestMetrics(m *instrumentation.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
