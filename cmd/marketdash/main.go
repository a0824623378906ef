package main

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

	"github.com/bher20/marketdash/internal/api"
	"github.com/bher20/marketdash/internal/config"
	"github.com/bher20/marketdash/internal/cron"
	"github.com/bher20/marketdash/internal/logging"
	"github.com/bher20/marketdash/internal/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()
	var logger *slog.Logger

	root := &cobra.Command{
		Use:          "marketdash",
		Short:        "Refresh and serve cached market datasets",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	pf.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "snapshot store driver: memory, sqlite, postgres")
	pf.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "snapshot store DSN")
	pf.StringVar(&cfg.TrackerDriver, "tracker-driver", cfg.TrackerDriver, "tracker store: csv, db, pgx, redis")
	pf.StringVar(&cfg.TrackerPath, "tracker-path", cfg.TrackerPath, "tracker CSV path")

	root.AddCommand(
		newRefreshCmd(&cfg, &logger),
		newWorkerCmd(&cfg, &logger),
		newServeCmd(&cfg, &logger),
		newMigrateCmd(&cfg),
	)
	return root
}

func newRefreshCmd(cfg *config.Config, logger **slog.Logger) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh pass over every dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, *logger)
			if err != nil {
				return err
			}
			defer a.close()

			if statusOnly {
				states, err := a.orch.Inspect(ctx, a.registry.Tasks())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, s := range states {
					last := "never"
					if s.LastRefresh != nil {
						last = s.LastRefresh.Format(time.RFC3339)
					}
					fmt.Fprintf(out, "%-26s %-10s due=%-5t last=%s\n", s.ID, s.Mode, s.Due, last)
				}
				job, err := a.store.GetScheduledJob(ctx, a.job.Name())
				if err != nil {
					return err
				}
				if job != nil {
					fmt.Fprintf(out, "job %s last_run=%s duration_ms=%d success=%t error=%q\n",
						job.Name, job.LastRunAt.Format(time.RFC3339), job.LastDurationMs, job.LastSuccess == 1, job.LastError)
				}
				return nil
			}

			rep, err := a.job.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed=%d skipped=%d failed=%d\n", rep.Refreshed(), rep.Skipped(), rep.Failed())
			for _, f := range rep.Failures() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", f.ID, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print tracker state without refreshing")
	return cmd
}

func newWorkerCmd(cfg *config.Config, logger **slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Refresh datasets on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, *logger)
			if err != nil {
				return err
			}
			defer a.close()

			err = cron.NewWorker(a.job, cfg.CronSchedule, *logger).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.CronSchedule, "schedule", cfg.CronSchedule, "cron expression, @every duration or seconds")
	return cmd
}

func newServeCmd(cfg *config.Config, logger **slog.Logger) *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cached datasets, refresh status and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := *logger
			a, err := newApp(ctx, *cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			mux := api.NewMux(api.Deps{
				Store:     a.store,
				Inspector: a.orch,
				Refresher: a.job,
				Tasks:     a.registry.Tasks,
				Logger:    log,
			})
			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			if withWorker {
				go func() {
					if err := cron.NewWorker(a.job, cfg.CronSchedule, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("worker stopped", "err", err)
					}
				}()
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("marketdash listening", "addr", srv.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Info("shutting down")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the scheduled refresh worker")
	cmd.Flags().StringVar(&cfg.CronSchedule, "schedule", cfg.CronSchedule, "worker schedule when --with-worker is set")
	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply goose migrations to the snapshot database",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN)
			case "down":
				return migrate.Down(ctx, cfg.DBDriver, cfg.DBDSN)
			default:
				return migrate.Status(ctx, cfg.DBDriver, cfg.DBDSN)
			}
		},
	}
	return cmd
}
