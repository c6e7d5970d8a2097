package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/pipeline"
	"github.com/teemow/todoagent/internal/rules"
	"github.com/teemow/todoagent/internal/scheduler"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/webhook"
)

// ErrTaskListsUnsupported is returned by TaskLists when the tracker cannot
// enumerate task lists.
var ErrTaskListsUnsupported = errors.New("task tracker does not list task lists")

// taskListLister is implemented by trackers that can enumerate task lists.
type taskListLister interface {
	ListTaskLists(ctx context.Context) ([]tasks.TaskList, error)
}

// Deps are the external collaborators of an Agent. Rules and Classifier are
// created with defaults when nil.
type Deps struct {
	Mail       pipeline.MailProvider
	Tracker    pipeline.TaskTracker
	Rules      *rules.Store
	Classifier *classifier.Classifier
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Config tunes the agent's components.
type Config struct {
	Pipeline  pipeline.Config
	Scheduler scheduler.Config
}

// Stats is the combined view of all components.
type Stats struct {
	Processing  pipeline.Stats   `json:"processing"`
	Rules       rules.Stats      `json:"rules"`
	AI          classifier.Stats `json:"ai"`
	AIAvailable bool             `json:"aiAvailable"`
	Scheduler   scheduler.Stats  `json:"scheduler"`
}

// Agent is one processing session. It owns the rule store, classifier
// history, statistics and scheduler; nothing is shared through package
// state, so several agents can run side by side.
type Agent struct {
	mail       pipeline.MailProvider
	tracker    pipeline.TaskTracker
	store      *rules.Store
	engine     *rules.Engine
	classifier *classifier.Classifier
	processor  *pipeline.Processor
	scheduler  *scheduler.Scheduler
	logger     *slog.Logger
}

var _ webhook.Dispatcher = (*Agent)(nil)

// New wires an agent.
func New(deps Deps, cfg Config) (*Agent, error) {
	if deps.Mail == nil {
		return nil, errors.New("mail provider is required")
	}
	if deps.Tracker == nil {
		return nil, errors.New("task tracker is required")
	}

	logger := logging.OrDefault(deps.Logger)

	store := deps.Rules
	if store == nil {
		var err error
		if store, err = rules.NewStore(rules.DefaultRules()...); err != nil {
			return nil, err
		}
	}

	ai := deps.Classifier
	if ai == nil {
		ai = classifier.New(logger, classifier.WithMetrics(deps.Metrics))
	}

	engine := rules.NewEngine(store, deps.Mail, logger, deps.Metrics)
	proc := pipeline.New(pipeline.Deps{
		Mail:       deps.Mail,
		Tracker:    deps.Tracker,
		Rules:      engine,
		Classifier: ai,
		Logger:     logger,
		Metrics:    deps.Metrics,
	}, cfg.Pipeline)

	if deps.Metrics != nil {
		names := make([]string, 0)
		for _, r := range store.List() {
			names = append(names, r.Name)
		}
		deps.Metrics.TrackRules(names...)
	}

	return &Agent{
		mail:       deps.Mail,
		tracker:    deps.Tracker,
		store:      store,
		engine:     engine,
		classifier: ai,
		processor:  proc,
		scheduler:  scheduler.New(deps.Mail, proc, cfg.Scheduler, logger, deps.Metrics),
		logger:     logging.WithComponent(logger, "agent"),
	}, nil
}

// ProcessEmail runs a single email through the pipeline.
func (a *Agent) ProcessEmail(ctx context.Context, id string) pipeline.Result {
	return a.processor.ProcessEmail(ctx, id)
}

// ProcessEmails processes every email matching query, up to max.
func (a *Agent) ProcessEmails(ctx context.Context, query string, max int) ([]pipeline.Result, error) {
	return a.processor.ProcessEmails(ctx, query, max)
}

// RunBatchCycle runs one scheduler cycle with the configured cap.
func (a *Agent) RunBatchCycle(ctx context.Context) scheduler.Stats {
	return a.scheduler.Run(ctx)
}

// RunManual runs one scheduler cycle capped at maxEmails.
func (a *Agent) RunManual(ctx context.Context, maxEmails int) scheduler.Stats {
	return a.scheduler.RunManual(ctx, maxEmails)
}

// StartSchedule starts timed batch processing.
func (a *Agent) StartSchedule(ctx context.Context, cfg scheduler.Config) error {
	return a.scheduler.Start(ctx, cfg)
}

// StopSchedule stops timed batch processing.
func (a *Agent) StopSchedule() {
	a.scheduler.Stop()
}

// SchedulerStats returns the scheduler state.
func (a *Agent) SchedulerStats() scheduler.Stats {
	return a.scheduler.Stats()
}

// Stats returns the combined statistics.
func (a *Agent) Stats() Stats {
	return Stats{
		Processing:  a.processor.Stats().Snapshot(),
		Rules:       a.store.Stats(),
		AI:          a.classifier.Stats(),
		AIAvailable: a.classifier.Available(),
		Scheduler:   a.scheduler.Stats(),
	}
}

// ResetStats zeroes the processing counters. Rule match counts and AI
// history are kept.
func (a *Agent) ResetStats() {
	a.processor.Stats().Reset()
	a.logger.Info("processing statistics reset")
}

// Rules lists all rules by priority.
func (a *Agent) Rules() []rules.Rule {
	return a.store.List()
}

// Rule returns one rule by ID.
func (a *Agent) Rule(id string) (rules.Rule, error) {
	return a.store.Get(id)
}

// RuleStats summarizes rule usage.
func (a *Agent) RuleStats() rules.Stats {
	return a.store.Stats()
}

// AddRule validates and stores a new rule.
func (a *Agent) AddRule(r rules.Rule) (rules.Rule, error) {
	added, err := a.store.Add(r)
	if err != nil {
		return rules.Rule{}, err
	}
	a.logger.Info("rule added", logging.Rule(added.Name), slog.String("rule_id", added.ID))
	return added, nil
}

// UpdateRule replaces an existing rule definition.
func (a *Agent) UpdateRule(id string, r rules.Rule) (rules.Rule, error) {
	updated, err := a.store.Update(id, r)
	if err != nil {
		return rules.Rule{}, err
	}
	a.logger.Info("rule updated", logging.Rule(updated.Name), slog.String("rule_id", id))
	return updated, nil
}

// DeleteRule removes a rule.
func (a *Agent) DeleteRule(id string) error {
	if err := a.store.Delete(id); err != nil {
		return err
	}
	a.logger.Info("rule deleted", slog.String("rule_id", id))
	return nil
}

// AIStats summarizes the classification history.
func (a *Agent) AIStats() classifier.Stats {
	return a.classifier.Stats()
}

// AIAvailable reports whether AI classification is configured and not
// tripped by an outage.
func (a *Agent) AIAvailable() bool {
	return a.classifier.Available()
}

// SenderPatterns returns per-sender classification summaries.
func (a *Agent) SenderPatterns() []classifier.SenderPattern {
	return a.classifier.SenderPatterns()
}

// ClearAIHistory forgets all classification history.
func (a *Agent) ClearAIHistory() {
	a.classifier.ClearHistory()
	a.logger.Info("AI classification history cleared")
}

// RuleSuggestions proposes rules for senders the classifier keeps labelling
// the same way.
func (a *Agent) RuleSuggestions() []rules.Suggestion {
	patterns := a.classifier.SenderPatterns()
	stats := make([]rules.SenderStat, 0, len(patterns))
	for _, p := range patterns {
		stats = append(stats, rules.SenderStat{
			Sender:        p.Sender,
			Label:         p.Label,
			Count:         p.Count,
			AvgConfidence: p.AvgConfidence,
		})
	}
	return rules.Suggest(stats, a.store.List())
}

// TaskLists lists the tracker's task lists, the candidates for the
// processing.task_list setting.
func (a *Agent) TaskLists(ctx context.Context) ([]tasks.TaskList, error) {
	lister, ok := a.tracker.(taskListLister)
	if !ok {
		return nil, ErrTaskListsUnsupported
	}
	return lister.ListTaskLists(ctx)
}

// DispatchEmail processes an email announced by a webhook.
func (a *Agent) DispatchEmail(ctx context.Context, emailID string) {
	res := a.processor.ProcessEmail(ctx, emailID)
	a.logger.Info("webhook email processed",
		logging.EmailID(emailID),
		logging.Outcome(res.Outcome))
}

// DispatchHistory runs a batch cycle after a Gmail push notification.
func (a *Agent) DispatchHistory(ctx context.Context, historyID string) {
	st := a.scheduler.Run(ctx)
	a.logger.Info("push-triggered batch finished",
		slog.String("history_id", historyID),
		slog.Int("processed", st.LastProcessed))
}
