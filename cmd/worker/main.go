package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/config"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/database"
	"github.com/jduhalde/consulting/internal/logger"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/pgmq"
	"github.com/jduhalde/consulting/internal/provider"
	"github.com/jduhalde/consulting/internal/repository"
	"github.com/jduhalde/consulting/internal/service"
	"github.com/jduhalde/consulting/internal/worker/execution"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	pgmqClient := pgmq.New(pool)

	cat, err := catalog.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load agent catalog: %v", err)
	}

	executors := buildExecutors(ctx, cfg, logger)
	router := provider.NewRouter(cat, executors, logger)

	userRepo := repository.NewUserRepo(pool)
	jobRepo := repository.NewJobRepo(pool, logger)
	ledgerRepo := repository.NewLedgerRepo(pool)
	m := metrics.New()
	costSvc := cost.NewService(cat, userRepo, ledgerRepo, m, logger)

	processor := execution.NewProcessor(jobRepo, router, costSvc, m,
		time.Duration(cfg.ExecutionTimeoutSec)*time.Second, logger)

	if err := execution.Run(ctx, cfg, pgmqClient, processor, logger); err != nil {
		logger.Fatal().Msgf("Execution worker failed: %v", err)
	}
	logger.Info().Msg("Execution worker stopped gracefully")
}

// buildExecutors resolves provider API keys from the environment, falling
// back to Secret Manager for keys that are not set locally.
func buildExecutors(ctx context.Context, cfg *config.Config, logger zerolog.Logger) map[string]provider.Executor {
	keys := map[string]string{
		provider.Vertex:  cfg.VertexAPIKey,
		provider.Azure:   cfg.AzureAPIKey,
		provider.Bedrock: cfg.BedrockAPIKey,
	}

	missing := false
	for _, key := range keys {
		if key == "" {
			missing = true
		}
	}
	if missing && cfg.GCPProjectID != "" {
		secrets, err := service.NewSecretService(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable; providers without API keys will fail")
		} else {
			for name, key := range keys {
				if key != "" {
					continue
				}
				resolved, err := secrets.GetProviderAPIKey(ctx, name)
				if err != nil {
					logger.Warn().Err(err).Str("provider", name).Msg("Failed to resolve provider API key from Secret Manager")
					continue
				}
				keys[name] = resolved
			}
		}
	}

	return map[string]provider.Executor{
		provider.Vertex:  provider.NewVertexExecutor(cfg.VertexEndpoint, keys[provider.Vertex]),
		provider.Azure:   provider.NewAzureExecutor(cfg.AzureEndpoint, keys[provider.Azure]),
		provider.Bedrock: provider.NewBedrockExecutor(cfg.BedrockEndpoint, keys[provider.Bedrock]),
	}
}
