package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/navigator-hub/flow-runner/pkg/api"
	"github.com/navigator-hub/flow-runner/pkg/auth"
	"github.com/navigator-hub/flow-runner/pkg/browser"
	"github.com/navigator-hub/flow-runner/pkg/config"
	"github.com/navigator-hub/flow-runner/pkg/logger"
	"github.com/navigator-hub/flow-runner/pkg/metrics"
	"github.com/navigator-hub/flow-runner/pkg/process"
	"github.com/navigator-hub/flow-runner/pkg/scheduler"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

// fallbackSecret signs tokens when no secret is configured. Fine for
// development, unusable for anything reachable from outside.
const fallbackSecret = "change-me"

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run the API server, scheduler and execution supervisor",
	Description: `Start the long-running service: the management API, the cron scheduler
and the supervisor that executes flows as child processes.

Configuration is read from config.yaml in the flow-runner home. Every
setting has a default, so a missing file just means defaults.

Examples:
  flow-runner serve
  flow-runner serve --listen :9000
  FLOW_RUNNER_HOME=/srv/flow-runner flow-runner serve`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to the config file (default: <home>/config.yaml)",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "HTTP listen address (overrides config)",
		},
	},
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, err := resolveServeConfig(c.String("config"), config.GetHome(), c.String("listen"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.ResolvedDataDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.ScreenshotDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	if err := logger.Init(cfg.LogPath()); err != nil {
		printWarning("Failed to initialize log file: %v", err)
	}
	defer logger.Close()
	logger.Info("=== flow-runner %s starting ===", Version)

	store, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	printSuccess("Database: %s", cfg.DatabasePath())

	collector := metrics.New(nil)

	manager := browser.NewManager()
	if cfg.Browser.SharedSessionLimit > 0 {
		manager.SharedSessionLimit = int64(cfg.Browser.SharedSessionLimit)
	}
	defer manager.Shutdown()

	supervisor := process.New(process.Config{
		Timeout: time.Duration(cfg.Execution.ProcessTimeoutSeconds) * time.Second,
		Sink:    collector.WrapSink(storage.NewSink(store)),
		Shared:  manager,
	})
	collector.RegisterRunning(func() int { return len(supervisor.ListRunning()) })

	secret := cfg.Auth.SecretKey
	if secret == "" && !cfg.Auth.Disabled {
		printWarning("auth.secretKey is not set, using the built-in development key")
		logger.Warn("No auth secret configured, tokens are signed with the development key")
		secret = fallbackSecret
	}
	tokens := auth.NewTokens(secret, time.Duration(cfg.Auth.TokenExpiryMinutes)*time.Minute)

	sched, err := scheduler.New(cfg.Scheduler.Timezone, supervisor, cfg.ScreenshotDir())
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	flows, err := store.ListScheduledFlows()
	if err != nil {
		return fmt.Errorf("failed to load scheduled flows: %w", err)
	}
	scheduled := sched.Reload(flows)
	sched.Start()
	defer sched.Stop()
	printSuccess("Scheduler: %d scheduled flow(s), timezone %s", scheduled, cfg.Scheduler.Timezone)

	if cfg.Auth.Disabled {
		printWarning("Authentication is disabled")
	}

	server := api.New(api.Config{
		Store:         store,
		Tokens:        tokens,
		Runner:        supervisor,
		Schedule:      sched,
		Metrics:       collector,
		ScreenshotDir: cfg.ScreenshotDir(),
		AuthDisabled:  cfg.Auth.Disabled,
	})
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	printSuccess("Listening on %s", cfg.Listen)
	logger.Info("API server listening on %s", cfg.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info("Received signal %v, shutting down", sig)
		printStep("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown: %v", err)
	}
	printSuccess("Stopped")
	return nil
}

// resolveServeConfig loads the service configuration: an explicit file
// when given, otherwise config.yaml from the home directory, with the
// listen address optionally overridden.
func resolveServeConfig(path, home, listen string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(home)
	}
	if err != nil {
		return nil, err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	return cfg, nil
}
