package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/config"
	"github.com/teemow/todoagent/internal/gmail"
	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/rules"
	"github.com/teemow/todoagent/internal/tasks"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	account    string
	debug      bool
	logFormat  string
}

var globals globalOptions

// loadConfig resolves .env, the config file and the flag overrides.
func loadConfig(opts globalOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.account != "" {
		cfg.Google.Account = opts.account
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. It always writes to stderr so stdout
// stays free for command output and the stdio MCP transport.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(os.Stderr, cfg.Log.Format, level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// loadRules returns the configured rules file, or the built-in defaults.
func loadRules(cfg *config.Config) ([]rules.Rule, error) {
	if cfg.Processing.RulesFile == "" {
		return rules.DefaultRules(), nil
	}
	list, err := rules.LoadFile(cfg.Processing.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return list, nil
}

// app holds everything a command needs to drive the agent.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	agent    *agent.Agent
	mail     *gmail.Client
}

// newApp wires configuration, instrumentation, the Google adapters, the
// classifier and the rule store into an agent.
func newApp(ctx context.Context, opts globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = instrConfig.Enabled && cfg.Metrics.Enabled
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, provider: provider}

	if err := a.buildAgent(ctx); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) buildAgent(ctx context.Context) error {
	cfg := a.cfg
	metrics := a.provider.Metrics()
	account := cfg.Google.Account

	store, err := google.NewTokenStore(cfg.Google.TokenDir, cfg.ClientCredentials())
	if err != nil {
		return err
	}
	httpClient, err := store.HTTPClient(ctx, account)
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return errors.New(google.AuthenticationErrorMessage(account))
		}
		return err
	}

	mail, err := gmail.NewClient(ctx, gmail.Config{Logger: a.logger, Metrics: metrics}, option.WithHTTPClient(httpClient))
	if err != nil {
		return err
	}
	a.mail = mail
	if err := mail.EnsureLabels(ctx); err != nil {
		a.logger.Warn("failed to ensure Gmail labels", logging.Err(err))
	}

	tracker, err := tasks.NewClient(ctx, tasks.Config{
		DefaultList: cfg.Processing.TaskList,
		Logger:      a.logger,
		Metrics:     metrics,
	}, option.WithHTTPClient(httpClient))
	if err != nil {
		return err
	}

	ai := classifier.New(a.logger, append(cfg.ClassifierOptions(), classifier.WithMetrics(metrics))...)
	if cfg.AIEnabled() {
		completer, err := classifier.NewOpenAICompleter(cfg.CompleterConfig(), a.logger)
		if err != nil {
			return err
		}
		ai.Initialize(completer)
	} else {
		a.logger.Info("OpenAI API key not configured, using basic classification",
			slog.String("fallback", cfg.Processing.Fallback))
	}

	seed, err := loadRules(cfg)
	if err != nil {
		return err
	}
	ruleStore, err := rules.NewStore(seed...)
	if err != nil {
		return err
	}

	pipelineCfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}
	a.agent, err = agent.New(agent.Deps{
		Mail:       mail,
		Tracker:    tracker,
		Rules:      ruleStore,
		Classifier: ai,
		Logger:     a.logger,
		Metrics:    metrics,
	}, agent.Config{Pipeline: pipelineCfg, Scheduler: cfg.SchedulerConfig()})
	return err
}

// close stops the schedule and flushes instrumentation.
func (a *app) close(ctx context.Context) {
	if a.agent != nil {
		a.agent.StopSchedule()
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}
