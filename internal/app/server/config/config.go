package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	// devSecret используется только в окружении local.
	devSecret = "replikeep-local-secret"
)

var ErrMissingSecret = errors.New("JWT_SECRET is required outside local environment")

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
	Auth   auth
	Sync   syncLimits
}

type db struct {
	DatabaseURI string `mapstructure:"database_uri"`
	Migrations  string `mapstructure:"migrations_path"`
}

type server struct {
	RunAddress      string        `mapstructure:"run_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type logger struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type auth struct {
	Secret   string        `mapstructure:"jwt_secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type syncLimits struct {
	BatchSize       int `mapstructure:"sync_batch_size"`
	MaxBatchSize    int `mapstructure:"sync_max_batch_size"`
	MaxQueryRecords int `mapstructure:"sync_max_query_records"`
}

// MustLoad загружает конфигурацию сервера или завершает процесс.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("config: failed to load %s: %v", envPath, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("token_ttl", "720h")
	v.SetDefault("sync_batch_size", 500)
	v.SetDefault("sync_max_batch_size", 1000)
	v.SetDefault("sync_max_query_records", 1000)

	config := Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: server{
			RunAddress:      v.GetString("run_address"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Logger: logger{
			LogLevel: v.GetString("log_level"),
			LogFile:  v.GetString("log_file"),
		},
		Auth: auth{
			Secret:   v.GetString("jwt_secret"),
			TokenTTL: v.GetDuration("token_ttl"),
		},
		Sync: syncLimits{
			BatchSize:       v.GetInt("sync_batch_size"),
			MaxBatchSize:    v.GetInt("sync_max_batch_size"),
			MaxQueryRecords: v.GetInt("sync_max_query_records"),
		},
	}

	if config.Auth.Secret == "" {
		if config.Env != EnvLocal {
			return nil, ErrMissingSecret
		}
		config.Auth.Secret = devSecret
	}
	if config.Sync.BatchSize <= 0 || config.Sync.MaxBatchSize <= 0 || config.Sync.MaxQueryRecords <= 0 {
		return nil, fmt.Errorf("sync limits must be positive: %+v", config.Sync)
	}

	return &config, nil
}
