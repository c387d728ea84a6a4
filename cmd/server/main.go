// Command server runs the clinical evaluation API on PostgreSQL and Redis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clindx-engine/internal/api"
	"github.com/clindx-engine/internal/audit"
	"github.com/clindx-engine/internal/cache"
	"github.com/clindx-engine/internal/config"
	"github.com/clindx-engine/internal/database"
	"github.com/clindx-engine/internal/diagnosis"
	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/evaluation"
	"github.com/clindx-engine/internal/logging"
	"github.com/clindx-engine/internal/middleware"
	"github.com/clindx-engine/internal/repository"
	"github.com/clindx-engine/pkg/external"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clindx-server",
		Short:        "Clinical evaluation and risk-scoring API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationRunner(func(runner *database.MigrationRunner) error {
				return runner.Up(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationRunner(func(runner *database.MigrationRunner) error {
				return runner.Down(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationRunner(func(runner *database.MigrationRunner) error {
				version, dirty, err := runner.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		doctorID int64
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()

			token, err := middleware.IssueToken(jwtConfig(cfg.Auth), doctorID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&doctorID, "doctor-id", 0, "doctor the token authenticates")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("doctor-id")

	return cmd
}

func withMigrationRunner(fn func(*database.MigrationRunner) error) error {
	manager, err := config.NewManager()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	runner, err := database.NewMigrationRunner(manager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return fn(runner)
}

func runServer() error {
	manager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := manager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	auditStore, err := audit.NewPostgresStoreFromURL(manager.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer auditStore.Close()

	checks := map[string]api.HealthChecker{"database": db}

	summaryCache, closeCache, err := newSummaryCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	if checker, ok := summaryCache.(api.HealthChecker); ok {
		checks["cache"] = checker
	}

	location, err := time.LoadLocation(cfg.Dashboard.Timezone)
	if err != nil {
		return fmt.Errorf("invalid dashboard timezone: %w", err)
	}

	predictor := external.NewPredictorClient(cfg.Predictor, logger)
	checks["predictor"] = predictor

	service := evaluation.NewService(
		repository.NewPatientRepository(db.Pool, logger),
		repository.NewEvaluationRepository(db.Pool, logger),
		diagnosis.NewAdapter(predictor, cfg.Predictor.Timeout, logger),
		auditStore,
		logger,
		evaluation.Options{
			Cache:       summaryCache,
			Location:    location,
			RecentLimit: cfg.Dashboard.RecentLimit,
		},
	)

	server := api.NewServer(service, api.Config{
		Server: cfg.Server,
		Auth:   jwtConfig(cfg.Auth),
		Debug:  cfg.Logging.Level == "debug",
		Checks: checks,
	}, logger)

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"predictor":   cfg.Predictor.URL,
	}).Info("Starting clindx server")

	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

// newSummaryCache uses Redis when enabled and an in-process LRU otherwise.
func newSummaryCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (domain.SummaryCache, func(), error) {
	if !cfg.Enabled {
		logger.Info("Redis cache disabled, using in-process summary cache")
		return cache.NewLRUSummaryCache(cache.DefaultLRUSize, cfg.SummaryTTL), func() {}, nil
	}

	redisCache, err := cache.NewRedisSummaryCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}

func jwtConfig(cfg domain.AuthConfig) middleware.JWTConfig {
	return middleware.JWTConfig{Secret: []byte(cfg.JWTSecret), Issuer: cfg.Issuer}
}
