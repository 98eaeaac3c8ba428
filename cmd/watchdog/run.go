package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/httpwatchdog/internal/config"
	"github.com/hamed0406/httpwatchdog/internal/httpapi"
	apimw "github.com/hamed0406/httpwatchdog/internal/httpapi/middleware"
	"github.com/hamed0406/httpwatchdog/internal/logging"
	"github.com/hamed0406/httpwatchdog/internal/notify"
	"github.com/hamed0406/httpwatchdog/internal/probe"
	"github.com/hamed0406/httpwatchdog/internal/repo"
	"github.com/hamed0406/httpwatchdog/internal/repo/memory"
	"github.com/hamed0406/httpwatchdog/internal/repo/postgres"
	"github.com/hamed0406/httpwatchdog/internal/watchdog"
)

var runCmd = &cobra.Command{
	Use:   "run <requirement-file>",
	Short: "Start probing and serve the report",
	Long: `Start the watchdog and the report server.

Command-line values take priority over the requirement file, which takes
priority over the defaults (probe interval 300s, port 80, timeout 30s).
The process runs until interrupted (Ctrl+C) or it receives SIGTERM.

Environment (a .env file in the working directory is loaded too):
  LOG_DIR, DATABASE_URL, SLACK_WEBHOOK_URL, TELEGRAM_BOT_TOKEN,
  TELEGRAM_CHAT_ID, PUBLIC_API_KEYS, ALLOWED_ORIGINS, PUBLIC_RPM,
  PUBLIC_BURST, ALERT_COOLDOWN_MS, ALERT_ON_RECOVERY, HTTP_TIMEOUT_MS`,
	Args:          cobra.ExactArgs(1),
	RunE:          runWatchdog,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("probe-interval", 0, "seconds to wait between probe cycles (default 300)")
	runCmd.Flags().Int("port", 0, "port for the report server (default 80)")
	runCmd.Flags().Duration("timeout", 0, "timeout for each probe (default 30s)")
	runCmd.Flags().String("log-dir", "", "directory for the debug log (default $LOG_DIR or ./logs)")
}

func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	if cmd.Flags().Changed("probe-interval") {
		n, _ := cmd.Flags().GetInt("probe-interval")
		d := time.Duration(n) * time.Second
		ov.ProbeInterval = &d
	}
	if cmd.Flags().Changed("port") {
		p, _ := cmd.Flags().GetInt("port")
		ov.Port = &p
	}
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		ov.Timeout = &d
	}
	return ov
}

func runWatchdog(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load() // optional
	env := config.FromEnv()
	if dir, _ := cmd.Flags().GetString("log-dir"); dir != "" {
		env.LogDir = dir
	}

	logger, err := logging.NewLogger(env.LogDir, cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	ov := overridesFromFlags(cmd)
	ov.FallbackTimeout = env.HTTPTimeout
	settings, err := config.LoadRequirements(args[0], ov)
	if err != nil {
		logger.Error("There are errors in the requirement file or command-line values", zap.Error(err))
		return err
	}
	for _, w := range settings.Warnings {
		logger.Warn("WARNING: " + w)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, logger, env, settings)
}

// serve runs the loop and the report server until ctx is cancelled or one of
// them fails. Cancellation through ctx is a clean exit.
func serve(ctx context.Context, logger *zap.Logger, env config.Config, s *config.Settings) error {
	store := memory.New(s.Pages)
	defer store.Close()

	prober := probe.NewHTTPProber()
	prober.DNSDiagnostics = true

	loop := watchdog.NewLoop(logger, store, prober, s.Pages, watchdog.LoopConfig{
		Interval: s.ProbeInterval,
		Timeout:  s.Timeout,
	})
	for _, p := range s.Pages {
		logger.Info("watching", zap.String("url", p.URL), zap.Strings("patterns", p.PatternStrings()))
	}

	var alertDB repo.AlertStore = memory.NewAlerts()
	var history repo.HistoryReader
	if env.DatabaseURL != "" {
		pg, err := postgres.New(ctx, env.DatabaseURL, logger)
		if err != nil {
			logger.Error("db_open_failed", zap.Error(err))
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("db_migrate_failed", zap.Error(err))
			return err
		}
		loop.Results = pg
		alertDB = pg
		history = pg
		logger.Info("history_enabled")
	}

	tg, err := notify.NewTelegram(env.TelegramBotToken, env.TelegramChatID)
	if err != nil {
		logger.Warn("telegram_disabled", zap.Error(err))
	}
	if ns := notify.Collect(notify.NewSlack(env.SlackWebhookURL), tg); len(ns) > 0 {
		loop.Alerter = watchdog.NewAlerter(alertDB, ns, watchdog.AlerterConfig{
			AlertOnRecovery: env.AlertOnRecovery,
			Cooldown:        env.AlertCooldown,
		})
		logger.Info("alerts_enabled", zap.Int("channels", len(ns)))
	}

	api := httpapi.NewServer(logger, store)
	api.History = history
	handler := api.Router(apimw.Keys{Public: env.PublicAPIKeys}, env.AllowedOrigins, env.PublicRPM, env.PublicBurst)
	addr := fmt.Sprintf(":%d", s.Port)

	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	g.Go(func() error {
		// the report server only lives as long as the loop
		defer stopServer()
		return loop.Run(gctx)
	})
	g.Go(func() error {
		err := httpapi.Serve(srvCtx, addr, handler, logger)
		if err != nil {
			if hint := httpapi.BindHint(err, s.Port); hint != "" {
				logger.Error("ERROR: " + hint)
			}
		}
		return err
	})

	err = g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		logger.Info("Caught interrupt. Exiting.")
		return nil
	}
	if err != nil {
		logger.Error("watchdog_stopped", zap.Error(err))
	}
	return err
}
