package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/webhook"
)

var errGmailUnavailable = errors.New("gmail circuit breaker open")

func newScheduleCmd() *cobra.Command {
	var (
		interval  time.Duration
		maxEmails int
		noWebhook bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Process emails on a timer and accept webhooks until interrupted",
		Long: `Start the batch scheduler. The first cycle runs immediately and catches up on
emails received within schedule.catch_up_window; later cycles run every
schedule.interval.

Unless disabled, an HTTP listener on webhook.addr accepts email notifications
on /webhook and serves /healthz, /readyz and /healthz/detailed. Prometheus
metrics are served on metrics.addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if cmd.Flags().Changed("interval") {
				a.cfg.Schedule.Interval = interval
			}
			if cmd.Flags().Changed("max") {
				a.cfg.Schedule.MaxEmails = maxEmails
			}
			if noWebhook {
				a.cfg.Webhook.Enabled = false
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runSchedule(ctx, a, nil)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Interval between batch cycles (default: schedule.interval)")
	cmd.Flags().IntVar(&maxEmails, "max", 0, "Maximum emails per cycle (default: schedule.max_emails)")
	cmd.Flags().BoolVar(&noWebhook, "no-webhook", false, "Do not start the webhook and health listener")
	return cmd
}

// mcpFactory builds the MCP handler mounted on the agent HTTP server.
type mcpFactory func(sc *server.ServerContext) (http.Handler, error)

// runSchedule starts the timer, the agent HTTP server and the metrics server
// and blocks until ctx is done or a server fails.
func runSchedule(ctx context.Context, a *app, newMCP mcpFactory) error {
	sc := server.NewServerContext(ctx, a.agent, a.cfg.Google.Account)
	sc.SetLogger(a.logger)
	sc.SetMetrics(a.provider.Metrics())
	defer func() {
		if err := sc.Shutdown(); err != nil {
			a.logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	var mcp http.Handler
	if newMCP != nil {
		var err error
		if mcp, err = newMCP(sc); err != nil {
			return err
		}
	}

	if err := a.agent.StartSchedule(ctx, a.cfg.SchedulerConfig()); err != nil {
		return err
	}

	errs := make(chan error, 2)
	var shutdowns []func(context.Context) error

	var health *server.HealthChecker
	if a.cfg.Webhook.Enabled || mcp != nil {
		hook := webhook.NewHandler(a.agent, webhook.Options{
			Token:       a.cfg.Webhook.Token,
			BaseContext: ctx,
			Logger:      a.logger,
			Metrics:     a.provider.Metrics(),
		})
		health = server.NewHealthChecker(sc)
		if a.mail != nil {
			health.AddCheck("gmail", func() error {
				if !a.mail.Available() {
					return errGmailUnavailable
				}
				return nil
			})
		}
		httpCfg := server.HTTPServerConfig{
			Addr:    a.cfg.Webhook.Addr,
			Health:  health,
			MCP:     mcp,
			Metrics: a.provider.Metrics(),
			Logger:  a.logger,
		}
		if a.cfg.Webhook.Enabled {
			httpCfg.Webhook = hook
		}
		httpSrv := server.NewHTTPServer(httpCfg)
		go serveUntilClosed(httpSrv.Start, errs)
		shutdowns = append(shutdowns, func(ctx context.Context) error {
			err := httpSrv.Shutdown(ctx)
			hook.Wait()
			return err
		})
	}

	if a.cfg.Metrics.Enabled && a.provider.PrometheusEnabled() {
		metricsSrv, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    a.cfg.Metrics.Addr,
			InstrumentationProvider: a.provider,
			Logger:                  a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go serveUntilClosed(metricsSrv.Start, errs)
		shutdowns = append(shutdowns, metricsSrv.Shutdown)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errs:
		a.logger.Error("server stopped", logging.Err(runErr))
	}

	if health != nil {
		health.SetReady(false)
	}
	a.agent.StopSchedule()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	for _, shutdown := range shutdowns {
		if err := shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown failed", logging.Err(err))
		}
	}

	st := a.agent.SchedulerStats()
	a.logger.Info("scheduler finished",
		slog.Int("total_runs", st.TotalRuns),
		slog.Int("total_emails", st.TotalEmails))
	return runErr
}

// serveUntilClosed runs start and reports any error other than a clean close.
func serveUntilClosed(start func() error, errs chan<- error) {
	if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- err
	}
}
