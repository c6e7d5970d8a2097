package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/pipeline"
)

// ErrAlreadyRunning is returned by Start when the timer is already active.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Source lists candidate emails.
type Source interface {
	FetchEmails(ctx context.Context, query string, max int) ([]*email.Email, error)
}

// Processor handles a single email.
type Processor interface {
	ProcessEmail(ctx context.Context, id string) pipeline.Result
}

// Stats describes the scheduler and its runs.
type Stats struct {
	Running            bool          `json:"running"`
	InProgress         bool          `json:"inProgress"`
	TotalRuns          int           `json:"totalRuns"`
	TotalEmails        int           `json:"totalEmails"`
	LastRunID          string        `json:"lastRunId,omitempty"`
	LastRunAt          time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt          time.Time     `json:"nextRunAt,omitempty"`
	LastRunDuration    time.Duration `json:"lastRunDuration"`
	AverageRunDuration time.Duration `json:"averageRunDuration"`
	LastProcessed      int           `json:"lastProcessed"`
	LastTasksCreated   int           `json:"lastTasksCreated"`
	LastSkipped        int           `json:"lastSkipped"`
	LastFailed         int           `json:"lastFailed"`
	LastError          string        `json:"lastError,omitempty"`
}

// Scheduler runs batch cycles on a timer and on demand. At most one cycle
// runs at a time; a cycle requested while another is in flight returns the
// current stats without doing anything.
type Scheduler struct {
	source  Source
	proc    Processor
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.Mutex
	cfg      Config
	stats    Stats
	inFlight bool
	catchUp  bool
	stop     chan struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a stopped scheduler.
func New(source Source, proc Processor, cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Scheduler {
	return &Scheduler{
		source:  source,
		proc:    proc,
		cfg:     cfg.withDefaults(),
		logger:  logging.WithComponent(logging.OrDefault(logger), "scheduler"),
		metrics: metrics,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Config returns the active configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Stats returns a snapshot of the scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Run executes one batch cycle with the configured email cap.
func (s *Scheduler) Run(ctx context.Context) Stats {
	return s.run(ctx, 0)
}

// RunManual executes one batch cycle capped at maxEmails. The configuration
// is left unchanged. A non-positive cap uses the configured one.
func (s *Scheduler) RunManual(ctx context.Context, maxEmails int) Stats {
	return s.run(ctx, maxEmails)
}

// Start applies cfg, runs a cycle immediately and then one every
// cfg.Interval until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	stop := make(chan struct{})
	s.stop = stop
	s.cfg = cfg
	s.catchUp = cfg.CatchUpWindow > 0
	s.stats.NextRunAt = s.now()
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		slog.Duration("interval", cfg.Interval),
		slog.Int("max_emails", cfg.MaxEmails))

	go s.loop(ctx, stop, cfg.Interval)
	return nil
}

// Stop cancels future cycles. A cycle in flight runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	s.stats.NextRunAt = time.Time{}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, stop, interval)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, stop, interval)
		case <-stop:
			return
		case <-ctx.Done():
			s.mu.Lock()
			if s.stop == stop {
				s.stop = nil
				s.stats.NextRunAt = time.Time{}
			}
			s.mu.Unlock()
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, stop chan struct{}, interval time.Duration) {
	s.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == stop {
		s.stats.NextRunAt = s.now().Add(interval)
	}
}

func (s *Scheduler) run(ctx context.Context, maxEmails int) Stats {
	s.mu.Lock()
	if s.inFlight {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Info("batch run already in progress, skipping")
		return snap
	}
	s.inFlight = true
	catchUp := s.catchUp
	s.catchUp = false
	cfg := s.cfg
	s.mu.Unlock()

	if maxEmails <= 0 {
		maxEmails = cfg.MaxEmails
	}
	runID := uuid.NewString()
	logger := s.logger.With(logging.RunID(runID))

	ctx, span := instrumentation.StartSpan(ctx, "scheduler.run",
		instrumentation.SpanFields{RunID: runID}.Attributes()...)
	defer span.End()

	start := s.now()
	query := BuildQuery(cfg.BaseQuery, catchUp, cfg.CatchUpWindow)
	logger.Info("batch run started", slog.String("query", query), slog.Int("max_emails", maxEmails))

	var tally runTally
	msgs, err := s.source.FetchEmails(ctx, query, maxEmails)
	if err != nil {
		logger.Error("batch query failed", logging.Err(err))
		instrumentation.SetSpanError(span, err)
	} else {
		for i, msg := range msgs {
			if i > 0 && cfg.EmailDelay > 0 {
				if serr := s.sleep(ctx, cfg.EmailDelay); serr != nil {
					err = serr
					break
				}
			}
			tally.add(s.proc.ProcessEmail(ctx, msg.ID))
		}
	}

	elapsed := s.now().Sub(start)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordBatchRun(ctx, status, elapsed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	st := &s.stats
	st.TotalRuns++
	st.TotalEmails += tally.processed
	st.LastRunID = runID
	st.LastRunAt = start
	st.LastRunDuration = elapsed
	st.AverageRunDuration += (elapsed - st.AverageRunDuration) / time.Duration(st.TotalRuns)
	st.LastProcessed = tally.processed
	st.LastTasksCreated = tally.tasks
	st.LastSkipped = tally.skipped
	st.LastFailed = tally.failed
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}

	logger.Info("batch run finished",
		slog.Int("processed", tally.processed),
		slog.Int("tasks_created", tally.tasks),
		slog.Int("skipped", tally.skipped),
		slog.Int("failed", tally.failed),
		logging.Duration(elapsed))
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() Stats {
	snap := s.stats
	snap.Running = s.stop != nil
	snap.InProgress = s.inFlight
	return snap
}

type runTally struct {
	processed, tasks, skipped, failed int
}

func (t *runTally) add(r pipeline.Result) {
	t.processed++
	switch r.Outcome {
	case pipeline.OutcomeTaskCreated:
		t.tasks++
	case pipeline.OutcomeSkipped:
		t.skipped++
	case pipeline.OutcomeFailed, pipeline.OutcomeNotFound:
		t.failed++
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
