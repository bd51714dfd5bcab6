package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".replikeep"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	ConfigDir     string `mapstructure:"config_dir"`
	TokenPath     string `mapstructure:"token_path"`
	DataPath      string `mapstructure:"data_path"`
	SignalPath    string `mapstructure:"signal_path"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	CACertPath    string `mapstructure:"ca_cert_path"`

	// Passphrase запечатывает секретные настройки перед отправкой.
	Passphrase string `mapstructure:"settings_passphrase"`

	SyncInterval     time.Duration `mapstructure:"sync_interval_seconds"`
	Debounce         time.Duration `mapstructure:"sync_debounce_ms"`
	ProbeInterval    time.Duration `mapstructure:"probe_interval_seconds"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout_seconds"`
	ClockDriftBuffer time.Duration `mapstructure:"clock_drift_seconds"`
	PushBatchSize    int           `mapstructure:"push_batch_size"`
	LogWindow        time.Duration `mapstructure:"log_window_days"`
	MessageWindow    time.Duration `mapstructure:"message_window_days"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env и переменные окружения.
func Load() (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	// Загружаем .env файл если существует
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	// Устанавливаем значения по умолчанию
	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("SYNC_INTERVAL_SECONDS", 300)
	v.SetDefault("SYNC_DEBOUNCE_MS", 2000)
	v.SetDefault("PROBE_INTERVAL_SECONDS", 30)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("CLOCK_DRIFT_SECONDS", 5)
	v.SetDefault("PUSH_BATCH_SIZE", 100)
	v.SetDefault("LOG_WINDOW_DAYS", 30)
	v.SetDefault("MESSAGE_WINDOW_DAYS", 14)
	v.SetDefault("ENABLE_TLS", false)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	// Создаем директории если их нет
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории конфигурации: %w", err)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "replikeep.db")
	}

	config := &Config{
		Env:              v.GetString("APP_ENV"),
		ServerAddress:    v.GetString("SERVER_ADDRESS"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFile:          v.GetString("LOG_FILE"),
		ConfigDir:        configDir,
		TokenPath:        filepath.Join(configDir, "token"),
		DataPath:         dataPath,
		SignalPath:       filepath.Join(configDir, "changes.signal"),
		EnableTLS:        v.GetBool("ENABLE_TLS"),
		CACertPath:       v.GetString("CA_CERT_PATH"),
		Passphrase:       v.GetString("SETTINGS_PASSPHRASE"),
		SyncInterval:     time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		Debounce:         time.Duration(v.GetInt("SYNC_DEBOUNCE_MS")) * time.Millisecond,
		ProbeInterval:    time.Duration(v.GetInt("PROBE_INTERVAL_SECONDS")) * time.Second,
		RequestTimeout:   time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		ClockDriftBuffer: time.Duration(v.GetInt("CLOCK_DRIFT_SECONDS")) * time.Second,
		PushBatchSize:    v.GetInt("PUSH_BATCH_SIZE"),
		LogWindow:        time.Duration(v.GetInt("LOG_WINDOW_DAYS")) * 24 * time.Hour,
		MessageWindow:    time.Duration(v.GetInt("MESSAGE_WINDOW_DAYS")) * 24 * time.Hour,
	}

	// Валидация конфигурации
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("sync_debounce_ms не может быть отрицательным")
	}
	if c.ClockDriftBuffer < 0 {
		return fmt.Errorf("clock_drift_seconds не может быть отрицательным")
	}
	if c.PushBatchSize <= 0 {
		return fmt.Errorf("push_batch_size должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
