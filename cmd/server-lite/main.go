// Command server-lite runs the clinical evaluation API without external
// services: SQLite storage and an in-process summary cache.
package main

import (
	"context"
	"errors"
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
	"github.com/clindx-engine/internal/diagnosis"
	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/evaluation"
	"github.com/clindx-engine/internal/logging"
	"github.com/clindx-engine/internal/middleware"
	"github.com/clindx-engine/internal/repository"
	"github.com/clindx-engine/pkg/external"
)

const issuer = "clindx"

func main() {
	rootCmd := &cobra.Command{
		Use:          "clindx-lite",
		Short:        "Standalone clinical evaluation API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.LoadLiteConfig())
		},
	})
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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
			cfg := config.LoadLiteConfig()
			token, err := middleware.IssueToken(jwtConfig(cfg), doctorID, ttl)
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

func run(cfg *config.LiteConfig) error {
	if cfg.JWTSecret == "" {
		return errors.New("CLINDX_JWT_SECRET is required")
	}

	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := repository.NewSQLiteStore(cfg.EvaluationsDBPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	auditStore, err := audit.NewSQLiteStore(cfg.AuditDBPath())
	if err != nil {
		return err
	}
	defer auditStore.Close()

	// A nil predictor routes every evaluation to the fallback diagnosis.
	var predictor domain.Predictor
	if cfg.PredictorURL != "" {
		predictor = external.NewPredictorClient(cfg.PredictorConfig(), logger)
	} else {
		logger.Warn("No predictor configured, evaluations use the fallback diagnosis")
	}

	service := evaluation.NewService(
		store,
		store,
		diagnosis.NewAdapter(predictor, cfg.PredictorTimeout, logger),
		auditStore,
		logger,
		evaluation.Options{Cache: cache.NewLRUSummaryCache(cfg.CacheMaxItems, cfg.SummaryTTL)},
	)

	server := api.NewServer(service, api.Config{
		Server: domain.ServerConfig{
			Port:           cfg.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   cfg.PredictorTimeout + 30*time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: cfg.PredictorTimeout + 15*time.Second,
		},
		Auth:  jwtConfig(cfg),
		Debug: cfg.LogLevel == "debug",
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"data_dir":  cfg.DataDir,
		"port":      cfg.HTTPPort,
		"predictor": cfg.PredictorURL,
	}).Info("Starting clindx lite server")

	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func jwtConfig(cfg *config.LiteConfig) middleware.JWTConfig {
	return middleware.JWTConfig{Secret: []byte(cfg.JWTSecret), Issuer: issuer}
}
