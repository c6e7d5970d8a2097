package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// ErrNotInitialized is returned when Classify is called before a Completer
// has been installed.
var ErrNotInitialized = errors.New("AI classifier not initialized")

// ErrUnavailable is returned while the installed completer reports an
// outage, e.g. an open circuit breaker.
var ErrUnavailable = errors.New("AI classifier unavailable")

// healthReporter is implemented by completers that can tell when their
// backend is down.
type healthReporter interface {
	Healthy() bool
}

func healthy(c Completer) bool {
	h, ok := c.(healthReporter)
	return !ok || h.Healthy()
}

const defaultBatchSize = 5

// DefaultBatchDelay is the pause between ClassifyBatch groups.
const DefaultBatchDelay = time.Second

// Classifier asks a language model whether an email is actionable.
type Classifier struct {
	mu        sync.RWMutex
	completer Completer

	history    *history
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	batchSize  int
	batchDelay time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBatchDelay sets the pause between ClassifyBatch groups.
func WithBatchDelay(d time.Duration) Option {
	return func(c *Classifier) { c.batchDelay = d }
}

// WithHistorySize bounds the number of remembered verdicts.
func WithHistorySize(n int) Option {
	return func(c *Classifier) { c.history = newHistory(n) }
}

// WithMetrics records classification metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// New creates an uninitialized classifier. Call Initialize before use.
func New(logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		history:    newHistory(DefaultHistorySize),
		logger:     logging.WithComponent(logging.OrDefault(logger), "classifier"),
		batchSize:  defaultBatchSize,
		batchDelay: DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize installs the completer. Passing nil disables the classifier.
func (c *Classifier) Initialize(completer Completer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completer = completer
}

// Available reports whether a completer is installed and healthy.
func (c *Classifier) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completer != nil && healthy(c.completer)
}

// Classify returns the model's verdict for msg. Model and decoding failures
// are not returned as errors; they produce FallbackVerdict instead. Errors are
// ErrNotInitialized and ErrUnavailable, the latter when the completer is
// unhealthy before the call or became unhealthy because of it.
func (c *Classifier) Classify(ctx context.Context, msg *email.Email) (Verdict, error) {
	c.mu.RLock()
	completer := c.completer
	c.mu.RUnlock()
	if completer == nil {
		return Verdict{}, ErrNotInitialized
	}
	if !healthy(completer) {
		return Verdict{}, ErrUnavailable
	}

	ctx, span := instrumentation.StartSpan(ctx, "classifier.classify",
		instrumentation.SpanFields{EmailID: msg.ID}.Attributes()...)
	defer span.End()

	logger := logging.WithEmail(c.logger, msg.ID)
	start := time.Now()

	raw, err := completer.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt(msg),
		Temperature:  temperature,
		JSON:         true,
	})
	if err == nil {
		var v Verdict
		v, err = parseVerdict(raw)
		if err == nil {
			c.history.add(msg.From, v, time.Now())
			c.metrics.RecordAIClassification(ctx, v.SuggestedLabel, instrumentation.StatusSuccess, time.Since(start))
			instrumentation.SetSpanSuccess(span)
			logger.Debug("email classified",
				logging.Label(v.SuggestedLabel),
				slog.Bool("actionable", v.IsActionable),
				slog.Float64("confidence", v.Confidence))
			return v, nil
		}
	}

	if !healthy(completer) {
		c.metrics.RecordAIClassification(ctx, "", instrumentation.StatusError, time.Since(start))
		instrumentation.SetSpanError(span, err)
		logger.Warn("AI classifier became unavailable", logging.Err(err))
		return Verdict{}, ErrUnavailable
	}

	fallback := FallbackVerdict()
	c.metrics.RecordAIClassification(ctx, fallback.SuggestedLabel, instrumentation.StatusError, time.Since(start))
	instrumentation.SetSpanError(span, err)
	logger.Warn("AI classification failed, using fallback verdict", logging.Err(err))
	return fallback, nil
}

// ClassifyBatch classifies emails in groups, running each group concurrently
// and pausing between groups. Results are in input order.
// Emails reached after the completer becomes unavailable get FallbackVerdict.
func (c *Classifier) ClassifyBatch(ctx context.Context, msgs []*email.Email) ([]Verdict, error) {
	c.mu.RLock()
	completer := c.completer
	c.mu.RUnlock()
	if completer == nil {
		return nil, ErrNotInitialized
	}
	if !healthy(completer) {
		return nil, ErrUnavailable
	}

	results := make([]Verdict, len(msgs))
	for start := 0; start < len(msgs); start += c.batchSize {
		if start > 0 && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return results[:start], ctx.Err()
			case <-time.After(c.batchDelay):
			}
		}

		end := min(start+c.batchSize, len(msgs))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := c.Classify(gctx, msgs[i])
				if errors.Is(err, ErrUnavailable) {
					v, err = FallbackVerdict(), nil
				}
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results[:start], err
		}
	}
	return results, nil
}

// Stats summarizes the remembered verdicts.
func (c *Classifier) Stats() Stats {
	return c.history.stats()
}

// SenderPatterns groups remembered verdicts by sender address.
func (c *Classifier) SenderPatterns() []SenderPattern {
	return c.history.senderPatterns()
}

// ClearHistory forgets all remembered verdicts.
func (c *Classifier) ClearHistory() {
	c.history.clear()
}
