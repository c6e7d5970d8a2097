package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/pipeline"
	"github.com/teemow/todoagent/internal/scheduler"
	"github.com/teemow/todoagent/internal/tasks"
)

// EnvPrefix prefixes every environment override, e.g. TODOAGENT_SCHEDULE_INTERVAL.
const EnvPrefix = "TODOAGENT"

// GoogleConfig selects the Google account and OAuth client.
type GoogleConfig struct {
	Account      string `mapstructure:"account" yaml:"account"`
	TokenDir     string `mapstructure:"token_dir" yaml:"token_dir"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" yaml:"redirect_url"`
}

// OpenAIConfig configures the AI classifier. An empty APIKey disables it.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Model   string        `mapstructure:"model" yaml:"model"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// HistorySize bounds the verdicts kept for statistics and suggestions.
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`
	// BatchDelay separates groups when previews classify several emails.
	BatchDelay time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`
}

// ProcessingConfig tunes the pipeline.
type ProcessingConfig struct {
	// Fallback is the policy while AI is unavailable: create, skip or defer.
	Fallback  string `mapstructure:"fallback" yaml:"fallback"`
	TaskList  string `mapstructure:"task_list" yaml:"task_list"`
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
}

// ScheduleConfig tunes batch runs.
type ScheduleConfig struct {
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxEmails     int           `mapstructure:"max_emails" yaml:"max_emails"`
	EmailDelay    time.Duration `mapstructure:"email_delay" yaml:"email_delay"`
	BaseQuery     string        `mapstructure:"base_query" yaml:"base_query"`
	CatchUpWindow time.Duration `mapstructure:"catch_up_window" yaml:"catch_up_window"`
}

// WebhookConfig configures the HTTP listener for webhooks and health probes.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Token   string `mapstructure:"token" yaml:"token"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the complete application configuration.
type Config struct {
	Google     GoogleConfig     `mapstructure:"google" yaml:"google"`
	OpenAI     OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`
	Schedule   ScheduleConfig   `mapstructure:"schedule" yaml:"schedule"`
	Webhook    WebhookConfig    `mapstructure:"webhook" yaml:"webhook"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`

	// File is the configuration file that was read, empty when none was.
	File string `mapstructure:"-" yaml:"-"`
}

// DefaultPath returns ~/.config/todoagent/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todoagent", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	sched := scheduler.DefaultConfig()

	v.SetDefault("google.account", google.DefaultAccount)
	v.SetDefault("google.token_dir", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("openai.model", classifier.DefaultModel)
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", 30*time.Second)
	v.SetDefault("openai.history_size", classifier.DefaultHistorySize)
	v.SetDefault("openai.batch_delay", classifier.DefaultBatchDelay)
	v.SetDefault("processing.fallback", string(pipeline.FallbackCreate))
	v.SetDefault("processing.task_list", tasks.DefaultList)
	v.SetDefault("processing.rules_file", "")
	v.SetDefault("schedule.interval", sched.Interval)
	v.SetDefault("schedule.max_emails", sched.MaxEmails)
	v.SetDefault("schedule.email_delay", sched.EmailDelay)
	v.SetDefault("schedule.base_query", sched.BaseQuery)
	v.SetDefault("schedule.catch_up_window", sched.CatchUpWindow)
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.addr", ":8080")
	v.SetDefault("webhook.token", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. With an empty path the default location is
// tried and a missing file yields the defaults; an explicit path must exist.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known variables used by the wider tooling.
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("google.client_id", EnvPrefix+"_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google.client_secret", EnvPrefix+"_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &pathErr) || errors.As(err, &notFound)
		if !missing || explicit {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		cfg.File = path
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables that
// are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks values that the components would otherwise reject late.
func (c *Config) Validate() error {
	var errs []error

	if err := google.ValidateAccountName(c.Google.Account); err != nil {
		errs = append(errs, fmt.Errorf("google.account: %w", err))
	}
	if _, err := pipeline.ParseFallbackPolicy(c.Processing.Fallback); err != nil {
		errs = append(errs, fmt.Errorf("processing.fallback: %w", err))
	}
	if c.Schedule.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("schedule.interval must be at least 1m, got %s", c.Schedule.Interval))
	}
	if c.Schedule.MaxEmails < 1 || c.Schedule.MaxEmails > 500 {
		errs = append(errs, fmt.Errorf("schedule.max_emails must be between 1 and 500, got %d", c.Schedule.MaxEmails))
	}
	if c.Schedule.EmailDelay < 0 {
		errs = append(errs, fmt.Errorf("schedule.email_delay must not be negative"))
	}
	if c.Schedule.CatchUpWindow < 0 {
		errs = append(errs, fmt.Errorf("schedule.catch_up_window must not be negative"))
	}
	if c.OpenAI.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("openai.timeout must be positive"))
	}
	if c.OpenAI.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("openai.history_size must be at least 1, got %d", c.OpenAI.HistorySize))
	}
	if c.OpenAI.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("openai.batch_delay must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Webhook.Enabled && c.Webhook.Addr == "" {
		errs = append(errs, fmt.Errorf("webhook.addr is required when the webhook is enabled"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether an OpenAI key is configured.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != ""
}

// SchedulerConfig converts the schedule section.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Interval:      c.Schedule.Interval,
		MaxEmails:     c.Schedule.MaxEmails,
		EmailDelay:    c.Schedule.EmailDelay,
		BaseQuery:     c.Schedule.BaseQuery,
		CatchUpWindow: c.Schedule.CatchUpWindow,
	}
}

// PipelineConfig converts the processing section.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	policy, err := pipeline.ParseFallbackPolicy(c.Processing.Fallback)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{Fallback: policy, TaskList: c.Processing.TaskList}, nil
}

// CompleterConfig converts the openai section.
func (c *Config) CompleterConfig() classifier.OpenAIConfig {
	return classifier.OpenAIConfig{
		APIKey:  c.OpenAI.APIKey,
		Model:   c.OpenAI.Model,
		BaseURL: c.OpenAI.BaseURL,
		Timeout: c.OpenAI.Timeout,
	}
}

// ClassifierOptions converts the openai section into classifier options.
func (c *Config) ClassifierOptions() []classifier.Option {
	return []classifier.Option{
		classifier.WithHistorySize(c.OpenAI.HistorySize),
		classifier.WithBatchDelay(c.OpenAI.BatchDelay),
	}
}

// ClientCredentials returns the Google OAuth client, falling back to the
// GOOGLE_* environment when the file leaves it empty.
func (c *Config) ClientCredentials() google.ClientCredentials {
	creds := google.ClientCredentials{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		env := google.CredentialsFromEnv()
		if creds.ClientID == "" {
			creds.ClientID = env.ClientID
		}
		if creds.ClientSecret == "" {
			creds.ClientSecret = env.ClientSecret
		}
	}
	return creds
}
