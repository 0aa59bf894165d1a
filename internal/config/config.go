package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3PublicURL       string `mapstructure:"S3_PUBLIC_URL"`

	GeminiAPIKey         string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL        string `mapstructure:"GEMINI_BASE_URL"`
	GeminiModel          string `mapstructure:"GEMINI_MODEL"`
	GeminiTimeoutSeconds int    `mapstructure:"GEMINI_TIMEOUT_SECONDS"`

	// DB_* are optional: with an empty DB_HOST the service runs in
	// sidecar-only mode and skips the structured store entirely.
	DBHost     string `mapstructure:"DB_HOST"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBPort     string `mapstructure:"DB_PORT"`

	// REDIS_ADDR is optional: without it failed metadata writes are not
	// queued for replay, only logged.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	OutboxIntervalSeconds int `mapstructure:"OUTBOX_INTERVAL_SECONDS"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ServerPort == "" {
		return nil, fmt.Errorf("SERVER_PORT is required")
	}

	if cfg.S3Region == "" {
		return nil, fmt.Errorf("S3_REGION is required")
	}

	if cfg.S3AccessKeyID == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID is required")
	}

	if cfg.S3SecretAccessKey == "" {
		return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY is required")
	}

	if cfg.S3BucketName == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	if cfg.GeminiBaseURL == "" {
		cfg.GeminiBaseURL = "https://generativelanguage.googleapis.com"
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-1.5-flash"
	}

	if cfg.GeminiTimeoutSeconds <= 0 {
		cfg.GeminiTimeoutSeconds = 30
	}

	if cfg.OutboxIntervalSeconds <= 0 {
		cfg.OutboxIntervalSeconds = 30
	}

	if cfg.DBHost != "" {
		if cfg.DBUser == "" {
			return nil, fmt.Errorf("DB_USER is required when DB_HOST is set")
		}
		if cfg.DBName == "" {
			return nil, fmt.Errorf("DB_NAME is required when DB_HOST is set")
		}
		if cfg.DBPort == "" {
			return nil, fmt.Errorf("DB_PORT is required when DB_HOST is set")
		}
	}

	return &cfg, nil
}

// DSN builds the postgres connection string for the structured store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}
