package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// ServerContext carries the agent session shared by the HTTP handlers and
// the MCP tools, plus a context that is cancelled on shutdown.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	agent    *agent.Agent
	account  string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context for an agent.
func NewServerContext(ctx context.Context, a *agent.Agent, account string) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		agent:   a,
		account: account,
		logger:  slog.Default(),
	}
}

// SetMetrics sets the metrics used by instrumented tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics, nil when instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetLogger sets the logger used by tool handlers.
func (sc *ServerContext) SetLogger(logger *slog.Logger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.logger = logging.OrDefault(logger)
}

// Logger returns the tool logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Context returns the server context. It is done after Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Agent returns the agent session.
func (sc *ServerContext) Agent() *agent.Agent {
	return sc.agent
}

// Account returns the Google account the agent works on.
func (sc *ServerContext) Account() string {
	return sc.account
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the agent's schedule and cancels the server context.
// Calling it twice is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	if sc.agent != nil {
		sc.agent.StopSchedule()
	}
	sc.cancel()
	return nil
}
