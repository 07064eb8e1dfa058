package router

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/api/v1/handler"
	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/config"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/database"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/middleware"
	"github.com/jduhalde/consulting/internal/pubsub"
	"github.com/jduhalde/consulting/internal/repository"
	"github.com/jduhalde/consulting/internal/service"
)

// New wires the full API: database, storage, messaging, services and
// handlers. It returns the root handler and the connection pool so main
// can close it on shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Initializing router")

	// Database: run migrations before opening the pool.
	databaseURL := cfg.DatabaseURL()
	if err := database.Migrate(databaseURL); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return nil, nil, err
	}
	pool, err := database.NewPool(ctx, databaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open database pool")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// S3 client for signed upload/download URLs.
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		pool.Close()
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	validate := validator.New(validator.WithRequiredStructEnabled())

	publisher, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		pool.Close()
		return nil, nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load agent catalog")
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Int("agents", len(cat.List(catalog.Filter{}))).Msg("Agent catalog loaded")

	m := metrics.New()

	// Repositories, services and handlers.
	userRepo := repository.NewUserRepo(pool)
	jobRepo := repository.NewJobRepo(pool, logger)
	ledgerRepo := repository.NewLedgerRepo(pool)
	uploadRepo := repository.NewUploadRepo(pool)

	costSvc := cost.NewService(cat, userRepo, ledgerRepo, m, logger)
	jobSvc := service.NewJobService(jobRepo, userRepo, cat, costSvc, publisher, cfg.JobsTopic, m, logger)
	uploadSvc := service.NewUploadService(uploadRepo, s3Client, cfg.S3Bucket,
		time.Duration(cfg.UploadURLTTLMin)*time.Minute,
		time.Duration(cfg.DownloadURLTTLMin)*time.Minute,
		logger)
	userSvc := service.NewUserService(userRepo, logger)

	jobHandler := handler.NewJobHandler(jobSvc, costSvc, validate)
	agentHandler := handler.NewAgentHandler(cat)
	uploadHandler := handler.NewUploadHandler(uploadSvc, validate)
	userHandler := handler.NewUserHandler(userSvc, validate)

	authMiddleware := middleware.Auth(cfg.JWTSecret, logger)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	jobHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	agentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	uploadHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.RequestLogger(logger)(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
