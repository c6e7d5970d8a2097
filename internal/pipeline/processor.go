package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/tasks"
)

// Deps are the collaborators of a Processor.
type Deps struct {
	Mail       MailProvider
	Tracker    TaskTracker
	Rules      RuleEvaluator
	Classifier Classifier
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Config tunes a Processor.
type Config struct {
	// Fallback applies when the AI classifier is unavailable.
	Fallback FallbackPolicy
	// TaskList is the task list tasks are created in. Empty uses the
	// tracker's default.
	TaskList string
}

// Processor decides, per email, whether a task is created and records the
// decision as Gmail labels. Labels are the only state: running the same
// email twice never creates a second task once it is marked processed.
type Processor struct {
	mail    MailProvider
	tracker TaskTracker
	rules   RuleEvaluator
	ai      Classifier
	cfg     Config
	stats   *StatsTracker
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// New creates a Processor. Classifier may be nil, which behaves like an
// unavailable classifier.
func New(deps Deps, cfg Config) *Processor {
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackCreate
	}
	return &Processor{
		mail:    deps.Mail,
		tracker: deps.Tracker,
		rules:   deps.Rules,
		ai:      deps.Classifier,
		cfg:     cfg,
		stats:   &StatsTracker{},
		logger:  logging.WithComponent(logging.OrDefault(deps.Logger), "pipeline"),
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

// Stats returns the session's counters.
func (p *Processor) Stats() *StatsTracker {
	return p.stats
}

// ProcessEmails fetches emails matching query and processes them one after
// another. Only the fetch itself can fail; per-email failures are reported in
// the results.
func (p *Processor) ProcessEmails(ctx context.Context, query string, max int) ([]Result, error) {
	msgs, err := p.mail.FetchEmails(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.ProcessEmail(ctx, msg.ID))
	}
	return results, nil
}

// ProcessEmail runs one email through the pipeline. It never returns an
// error: failures are reported in the Result and, except for emails that no
// longer exist, recorded with the TodoAgent_Failed label.
func (p *Processor) ProcessEmail(ctx context.Context, id string) Result {
	ctx, span := instrumentation.StartSpan(ctx, "pipeline.process_email",
		instrumentation.SpanFields{EmailID: id}.Attributes()...)
	defer span.End()

	logger := logging.WithEmail(p.logger, id)
	start := p.now()

	res, err := p.safeProcess(ctx, logger, id)
	if err != nil {
		res = p.fail(ctx, logger, id, err)
		instrumentation.SetSpanError(span, err)
	}

	elapsed := p.now().Sub(start)
	p.stats.update(func(s *Stats) {
		s.TotalProcessed++
		s.TotalProcessingTime += elapsed
	})
	p.metrics.RecordEmailProcessed(ctx, res.Outcome, elapsed)
	instrumentation.SetSpanOutcome(span, res.Outcome)

	logger.Info("email processed",
		logging.Outcome(res.Outcome),
		slog.Bool("success", res.Success),
		logging.Duration(elapsed))
	return res
}

// safeProcess turns a panic in a collaborator into an error so the email
// ends up Failed instead of taking the process down.
func (p *Processor) safeProcess(ctx context.Context, logger *slog.Logger, id string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing email: %v", r)
		}
	}()
	return p.process(ctx, logger, id)
}

func (p *Processor) process(ctx context.Context, logger *slog.Logger, id string) (Result, error) {
	msg, err := p.mail.FetchEmailByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	logger = logger.With(logging.SenderDomain(email.SenderAddress(msg.From)))

	state := email.DeriveStatus(msg.Labels)
	if state.Status.Terminal() {
		return Result{
			EmailID: id,
			Success: true,
			Outcome: OutcomeAlreadyProcessed,
			Message: "email already processed",
		}, nil
	}
	if state.Retry {
		logger.Info("retrying previously failed email")
	}
	if state.Status == email.StatusCategorized {
		return p.createFromLabel(ctx, msg, state.Category, 0)
	}

	match, err := p.rules.Evaluate(ctx, msg)
	if err != nil {
		if !match.Matched {
			return Result{}, err
		}
		logger.Warn("rule matched but its label could not be written", logging.Err(err))
	}
	if match.Matched {
		p.stats.update(func(s *Stats) { s.RuleMatched++ })

		// the rule wrote a label; read it back so the decision is made on
		// what Gmail actually holds
		fresh, err := p.mail.FetchEmailByID(ctx, id)
		if err != nil {
			return Result{}, err
		}
		fs := email.DeriveStatus(fresh.Labels)
		if fs.Status == email.StatusCategorized {
			return p.createFromLabel(ctx, fresh, fs.Category, match.Rule.Action.Priority)
		}
		if match.Rule.Action.SkipAI || fs.Status == email.StatusSkipped {
			return p.skip(ctx, fresh, "rule marked to skip")
		}
		msg = fresh
	}

	return p.classify(ctx, logger, msg)
}

func (p *Processor) classify(ctx context.Context, logger *slog.Logger, msg *email.Email) (Result, error) {
	if p.ai == nil || !p.ai.Available() {
		return p.basic(ctx, logger, msg)
	}

	v, err := p.ai.Classify(ctx, msg)
	if errors.Is(err, classifier.ErrNotInitialized) || errors.Is(err, classifier.ErrUnavailable) {
		logger.Debug("AI unavailable, using basic classification")
		return p.basic(ctx, logger, msg)
	}
	if err != nil {
		return Result{}, err
	}
	p.stats.update(func(s *Stats) { s.AIProcessed++ })

	if !v.IsActionable || v.SuggestedLabel == email.LabelSkip {
		return p.skip(ctx, msg, "AI determined not actionable")
	}

	p.label(ctx, msg.ID, v.SuggestedLabel)
	return p.createTask(ctx, msg, taskFromVerdict(msg, v))
}

// basic handles emails while the AI classifier is unavailable.
func (p *Processor) basic(ctx context.Context, logger *slog.Logger, msg *email.Email) (Result, error) {
	if looksAutomated(msg) {
		return p.skip(ctx, msg, "basic classification: automated sender or subject")
	}

	switch p.cfg.Fallback {
	case FallbackSkip:
		return p.skip(ctx, msg, "AI unavailable, skipped by policy")
	case FallbackDefer:
		logger.Info("AI unavailable, deferring email")
		return Result{
			EmailID: msg.ID,
			Success: true,
			Outcome: OutcomeDeferred,
			Message: "AI unavailable, left for a later run",
		}, nil
	default:
		p.label(ctx, msg.ID, email.LabelTask)
		return p.createFromLabel(ctx, msg, email.LabelTask, 0)
	}
}

// createFromLabel creates a task whose priority and category derive from the
// email's action label. priority overrides the label default when positive.
func (p *Processor) createFromLabel(ctx context.Context, msg *email.Email, label string, priority int) (Result, error) {
	defPriority, category := email.LabelDefaults(label)
	if priority <= 0 {
		priority = defPriority
	}
	return p.createTask(ctx, msg, tasks.NewTask{
		Title:       titleFor(msg),
		Description: descriptionFor(msg),
		Priority:    priority,
		Category:    category,
	})
}

func (p *Processor) createTask(ctx context.Context, msg *email.Email, t tasks.NewTask) (Result, error) {
	t.ProjectID = p.cfg.TaskList
	t.EmailLink = msg.Link()
	t.Labels = append(t.Labels, "email-"+t.Category)

	created, err := p.tracker.CreateTask(ctx, t)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create task: %w", err)
	}
	p.stats.update(func(s *Stats) { s.TasksCreated++ })
	p.metrics.RecordTaskCreated(ctx, t.Category)

	p.label(ctx, msg.ID, email.LabelProcessed)
	p.clearFailed(ctx, msg)

	return Result{
		EmailID: msg.ID,
		Success: true,
		Outcome: OutcomeTaskCreated,
		TaskID:  created.ID,
		Message: fmt.Sprintf("created task %q", t.Title),
	}, nil
}

func (p *Processor) skip(ctx context.Context, msg *email.Email, reason string) (Result, error) {
	p.label(ctx, msg.ID, email.LabelSkip)
	p.clearFailed(ctx, msg)
	p.stats.update(func(s *Stats) { s.Skipped++ })

	return Result{
		EmailID: msg.ID,
		Success: true,
		Outcome: OutcomeSkipped,
		Message: reason,
	}, nil
}

// label writes a label. A failed write is logged and does not change the
// outcome already decided for the email.
func (p *Processor) label(ctx context.Context, id, label string) {
	if err := p.mail.AddLabel(ctx, id, label); err != nil {
		p.logger.Warn("failed to apply label", logging.EmailID(id), logging.Label(label), logging.Err(err))
	}
}

// clearFailed removes a stale TodoAgent_Failed label after a retry succeeded.
func (p *Processor) clearFailed(ctx context.Context, msg *email.Email) {
	if !msg.HasLabel(email.LabelFailed) {
		return
	}
	if err := p.mail.RemoveLabel(ctx, msg.ID, email.LabelFailed); err != nil {
		p.logger.Warn("failed to clear failed label", logging.EmailID(msg.ID), logging.Err(err))
	}
}

func (p *Processor) fail(ctx context.Context, logger *slog.Logger, id string, err error) Result {
	if errors.Is(err, email.ErrNotFound) {
		logger.Warn("email not found", logging.Err(err))
		return Result{
			EmailID: id,
			Outcome: OutcomeNotFound,
			Message: "email not found",
			Error:   err.Error(),
		}
	}

	p.stats.update(func(s *Stats) { s.Failed++ })
	logger.Error("email processing failed", logging.Err(err))
	if lerr := p.mail.AddLabel(ctx, id, email.LabelFailed); lerr != nil {
		logger.Warn("failed to apply failed label", logging.Err(lerr))
	}
	return Result{
		EmailID: id,
		Outcome: OutcomeFailed,
		Message: "processing failed",
		Error:   err.Error(),
	}
}

func taskFromVerdict(msg *email.Email, v classifier.Verdict) tasks.NewTask {
	priority, category := email.LabelDefaults(v.SuggestedLabel)
	t := tasks.NewTask{
		Title:       titleFor(msg),
		Description: descriptionFor(msg),
		Priority:    priority,
		Category:    category,
	}
	if td := v.TaskData; td != nil {
		if td.Title != "" {
			t.Title = td.Title
		}
		if td.Description != "" {
			t.Description = td.Description + "\n\n" + descriptionFor(msg)
		}
		t.Priority = td.Priority
		t.Category = td.Category
		t.DueHint = td.DueDate
	}
	return t
}

func titleFor(msg *email.Email) string {
	if s := strings.TrimSpace(msg.Subject); s != "" {
		return s
	}
	return "Email from " + msg.From
}

func descriptionFor(msg *email.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	if msg.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(msg.Snippet)
	}
	return b.String()
}
