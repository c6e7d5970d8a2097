package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

const (
	// Path is the route the handler is mounted on.
	Path = "/webhook"
	// TokenHeader carries the optional shared secret.
	TokenHeader = "X-Webhook-Token"
	// MaxBodyBytes limits the accepted payload size.
	MaxBodyBytes = 1 << 20
)

// Results recorded per request.
const (
	ResultAccepted     = "accepted"
	ResultIgnored      = "ignored"
	ResultUnauthorized = "unauthorized"
	ResultRejected     = "rejected"
)

// Dispatcher acts on accepted notifications. Calls happen on a background
// goroutine after the request has been answered.
type Dispatcher interface {
	DispatchEmail(ctx context.Context, emailID string)
	DispatchHistory(ctx context.Context, historyID string)
}

// Options configure a Handler.
type Options struct {
	// Token, when set, must match the X-Webhook-Token header.
	Token string
	// BaseContext outlives individual requests and bounds background work.
	BaseContext context.Context
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
}

// Response is the JSON acknowledgement body.
type Response struct {
	Status    string `json:"status"`
	EmailID   string `json:"emailId,omitempty"`
	HistoryID string `json:"historyId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Handler acknowledges webhook calls immediately and dispatches the work
// asynchronously.
type Handler struct {
	dispatcher Dispatcher
	token      string
	baseCtx    context.Context
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	wg         sync.WaitGroup
}

// NewHandler creates a webhook handler.
func NewHandler(d Dispatcher, opts Options) *Handler {
	ctx := opts.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handler{
		dispatcher: d,
		token:      opts.Token,
		baseCtx:    ctx,
		logger:     logging.WithComponent(logging.OrDefault(opts.Logger), "webhook"),
		metrics:    opts.Metrics,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reply(r.Context(), w, http.StatusMethodNotAllowed, ResultRejected, Response{Status: "error", Error: "method not allowed"})
		return
	}

	if h.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(TokenHeader)), []byte(h.token)) != 1 {
		h.logger.Warn("webhook rejected: invalid token")
		h.reply(r.Context(), w, http.StatusUnauthorized, ResultUnauthorized, Response{Status: "error", Error: "invalid token"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.reply(r.Context(), w, status, ResultRejected, Response{Status: "error", Error: "unreadable body"})
		return
	}

	n, ok := Parse(body)
	if !ok {
		h.logger.Debug("webhook payload ignored", slog.Int("bytes", len(body)))
		h.reply(r.Context(), w, http.StatusOK, ResultIgnored, Response{Status: ResultIgnored})
		return
	}

	h.dispatch(n)

	h.reply(r.Context(), w, http.StatusAccepted, ResultAccepted, Response{
		Status:    ResultAccepted,
		EmailID:   n.EmailID,
		HistoryID: n.HistoryID,
	})
}

// Wait blocks until all dispatched work has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) dispatch(n Notification) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("webhook dispatch panicked",
					logging.EmailID(n.EmailID),
					logging.Err(fmt.Errorf("panic: %v", r)))
			}
		}()
		switch n.Kind {
		case KindHistory:
			h.logger.Info("gmail push received", slog.String("history_id", n.HistoryID))
			h.dispatcher.DispatchHistory(h.baseCtx, n.HistoryID)
		default:
			h.logger.Info("email webhook received", logging.EmailID(n.EmailID), slog.String("trigger", n.Trigger))
			h.dispatcher.DispatchEmail(h.baseCtx, n.EmailID)
		}
	}()
}

func (h *Handler) reply(ctx context.Context, w http.ResponseWriter, status int, result string, body Response) {
	h.metrics.RecordWebhook(ctx, result)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
