package config

import (
	"fmt"
	"net/url"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	S3URL             string `envconfig:"S3_URL" required:"true"`
	S3Bucket          string `envconfig:"S3_BUCKET" required:"true"`
	S3Region          string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey       string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey       string `envconfig:"S3_SECRET_KEY" required:"true"`
	UploadURLTTLMin   int    `envconfig:"UPLOAD_URL_TTL_MIN" default:"15"`
	DownloadURLTTLMin int    `envconfig:"DOWNLOAD_URL_TTL_MIN" default:"60"`

	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
	JobsTopic    string `envconfig:"JOBS_TOPIC" default:"job-created"`

	// Execution worker settings. The Pub/Sub push subscription for
	// JobsTopic is bridged into this pgmq queue by infrastructure.
	JobsQueueName           string `envconfig:"JOBS_QUEUE_NAME" default:"jobs_queue"`
	JobsDeadLetterQueueName string `envconfig:"JOBS_DEAD_LETTER_QUEUE_NAME" default:"jobs_queue_dlq"`
	JobsPollTimeoutSec      int    `envconfig:"JOBS_POLL_TIMEOUT_SEC" default:"30"`
	JobsPollMaxMsg          int    `envconfig:"JOBS_POLL_MAX_MSG" default:"1"`
	ExecutionTimeoutSec     int    `envconfig:"EXECUTION_TIMEOUT_SEC" default:"300"`

	// AI provider endpoints. API keys may be left empty and resolved
	// from Secret Manager at worker startup.
	VertexEndpoint  string `envconfig:"VERTEX_ENDPOINT"`
	VertexAPIKey    string `envconfig:"VERTEX_API_KEY"`
	AzureEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureAPIKey     string `envconfig:"AZURE_OPENAI_API_KEY"`
	BedrockEndpoint string `envconfig:"BEDROCK_ENDPOINT"`
	BedrockAPIKey   string `envconfig:"BEDROCK_API_KEY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL returns the connection string in URL form, as required by
// pgxpool and golang-migrate.
func (c *Config) DatabaseURL() string {
	sslmode := "require"
	if c.Environment == "development" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, sslmode)
}
