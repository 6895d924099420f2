package commands

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/auth"
	"github.com/gantrykit/gantry/pkg/config"
	"github.com/gantrykit/gantry/pkg/identity"
	"github.com/gantrykit/gantry/pkg/metrics"
	"github.com/gantrykit/gantry/pkg/metrics/prometheus"
	"github.com/gantrykit/gantry/pkg/postgres"
	"github.com/gantrykit/gantry/pkg/server"
	"github.com/gantrykit/gantry/pkg/telemetry"
)

//go:embed migrations
var migrationsFS embed.FS

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Gantry server",
	Long: `Start the Gantry server with the specified configuration.

The server runs in the foreground until it receives SIGINT or SIGTERM,
then drains in-flight requests within the configured grace period and
stops its background processes in reverse start order.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/gantry/config.yaml.

Examples:
  # Start with the default config location
  gantryd serve

  # Start with a custom config file
  gantryd serve --config /etc/gantry/config.yaml

  # Pick up logging level changes without a restart
  gantryd serve --watch

  # Start with environment variable overrides
  GANTRY_LOGGING_LEVEL=DEBUG gantryd serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the logging level when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Server.Name,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		FlushTimeout:   cfg.Telemetry.FlushTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	// The server flushes telemetry as its last shutdown step; this defer
	// covers failures before the server takes ownership. The shutdown
	// function is idempotent, so the double call is harmless.
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Warn("Telemetry flush incomplete", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    cfg.Server.Name,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Warn("Profiling shutdown error", logger.Err(err))
		}
	}()

	fmt.Printf("Gantry %s - HTTP service toolkit\n", Version)
	logger.Info("Configuration loaded",
		logger.ConfigFile(getConfigSource(GetConfigFile())),
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	if cfg.Server.IsMetricsEnabled() {
		metrics.InitRegistry()
	}

	deps, opts, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}

	opts = append(opts,
		server.WithMiddleware(cfg.Middleware, prometheus.NewHTTPMetrics()),
		server.WithTelemetryFlush(telemetryShutdown),
	)

	srv := server.New(cfg.Server, buildRouter(deps), opts...)

	if serveWatch {
		go func() {
			if err := config.Watch(ctx, configPathForWatch()); err != nil {
				logger.Warn("Config watcher stopped", logger.Err(err))
			}
		}()
	}

	return srv.Run(ctx)
}

// buildBackends constructs the optional subsystems the configuration
// enables: the database pool, the identity store and the token service.
func buildBackends(ctx context.Context, cfg *config.Config) (serverDeps, []server.Option, error) {
	var deps serverDeps
	var opts []server.Option

	if cfg.Database.Enabled {
		pool, err := postgres.New(ctx, cfg.Database, prometheus.NewPoolMetrics())
		if err != nil {
			return deps, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := pool.Migrate(ctx, migrationsFS, "migrations"); err != nil {
				pool.Close()
				return deps, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		deps.pool = pool
		opts = append(opts, server.WithPool(pool))
		logger.Info("Database pool configured",
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
			"max_conns", cfg.Database.MaxConns)
	}

	if cfg.Auth.Enabled {
		svc, err := auth.New(cfg.Auth)
		if err != nil {
			return deps, nil, fmt.Errorf("failed to create token service: %w", err)
		}
		deps.auth = svc

		users, err := identity.New(&cfg.Identity)
		if err != nil {
			return deps, nil, fmt.Errorf("failed to open identity store: %w", err)
		}
		deps.users = users

		adminPassword, err := users.EnsureAdmin(ctx)
		if err != nil {
			return deps, nil, fmt.Errorf("failed to ensure admin user: %w", err)
		}
		if adminPassword != "" {
			fmt.Printf("\n*** Admin user created with password: %s ***\n", adminPassword)
			fmt.Println("Save this password. It will not be shown again.")
			fmt.Println()
		}

		opts = append(opts,
			server.WithReadyCheck("identity", users.Healthcheck),
			server.WithProcess(server.NewProcess("identity-store", users.Healthcheck,
				func(ctx context.Context) error {
					<-ctx.Done()
					return users.Close()
				})),
		)
		logger.Info("Authentication enabled",
			"issuer", cfg.Auth.Issuer,
			"identity_backend", string(cfg.Identity.Backend))
	}

	return deps, opts, nil
}

// configPathForWatch resolves the file the --watch flag observes.
func configPathForWatch() string {
	if path := GetConfigFile(); path != "" {
		return path
	}
	return config.GetDefaultConfigPath()
}
