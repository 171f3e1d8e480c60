package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "TIER_ENGINE_CONFIG"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	mlInferenceURLEnv = "ML_INFERENCE_URL"
	mlAPIKeyEnv       = "ML_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	otelEnabledEnv    = "OTEL_ENABLED"

	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	ML            MLConfig           `yaml:"ml"`
	Guardrail     GuardrailConfig    `yaml:"guardrail"`
	Sweep         SweepConfig        `yaml:"sweep"`
	Notifications NotificationConfig `yaml:"notifications"`
	Tracing       TracingConfig      `yaml:"tracing"`
}

// LoggingConfig sets the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig describes the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// DatabaseConfig selects the store. Driver is "memory" or "postgres".
type DatabaseConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig enables the distributed per-customer lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lockTtl"`
}

// MLConfig describes the classifier service.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GuardrailConfig overrides the tier policy thresholds; zero keeps the default.
type GuardrailConfig struct {
	MinConfidence        float64 `yaml:"minConfidence"`
	DowngradeRecencyDays int     `yaml:"downgradeRecencyDays"`
	UpgradeCooldownDays  int     `yaml:"upgradeCooldownDays"`
	MaxUpgradeStep       int     `yaml:"maxUpgradeStep"`
	TriggerEvery         int     `yaml:"triggerEvery"`
	TriggerMonetary      float64 `yaml:"triggerMonetary"`
}

// SweepConfig schedules the batch reassignment. Interval 0 disables it.
type SweepConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	RunOnStart  bool          `yaml:"runOnStart"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"serviceName"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, err
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
		c.Database.Driver = DriverPostgres
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv(mlInferenceURLEnv); v != "" {
		c.ML.InferenceURL = v
	}
	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.ML.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(otelEnabledEnv); v != "" {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Tracing.Enabled = enabled
		}
	}
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver != DriverPostgres {
		c.Database.Driver = DriverMemory
	}
	if c.Tracing.SampleRatio < 0 {
		c.Tracing.SampleRatio = 0
	}
	if c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.ShutdownTimeout > 0 {
		base.HTTP.ShutdownTimeout = override.HTTP.ShutdownTimeout
	}
	if len(override.HTTP.AllowOrigins) > 0 {
		base.HTTP.AllowOrigins = override.HTTP.AllowOrigins
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Migrate {
		base.Database.Migrate = true
	}

	if override.Redis.Addr != "" {
		base.Redis = override.Redis
		if base.Redis.LockTTL <= 0 {
			base.Redis.LockTTL = defaultConfig().Redis.LockTTL
		}
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}
	if override.ML.Timeout > 0 {
		base.ML.Timeout = override.ML.Timeout
	}

	if override.Guardrail != (GuardrailConfig{}) {
		base.Guardrail = override.Guardrail
	}

	if override.Sweep.Interval > 0 {
		base.Sweep.Interval = override.Sweep.Interval
	}
	if override.Sweep.Concurrency > 0 {
		base.Sweep.Concurrency = override.Sweep.Concurrency
	}
	if override.Sweep.RunOnStart {
		base.Sweep.RunOnStart = true
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Tracing.Enabled {
		base.Tracing.Enabled = true
	}
	if override.Tracing.ServiceName != "" {
		base.Tracing.ServiceName = override.Tracing.ServiceName
	}
	if override.Tracing.SampleRatio > 0 {
		base.Tracing.SampleRatio = override.Tracing.SampleRatio
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		HTTP:     HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{Driver: DriverMemory},
		Redis:    RedisConfig{LockTTL: 30 * time.Second},
		ML:       MLConfig{Timeout: 3 * time.Second},
		Sweep:    SweepConfig{Concurrency: 4},
		Tracing:  TracingConfig{ServiceName: "tier-engine", SampleRatio: 0.1},
	}
}
