package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const envDevelopment = "development"

// Config holds application configuration sourced from environment variables.
type Config struct {
	Environment   string `env:"ENVIRONMENT" env-default:"development"`
	Port          string `env:"PORT" env-default:"8080"`
	DBPath        string `env:"DB_PATH" env-default:"./dev.db"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	SessionSecret string `env:"SESSION_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"console"`

	Redis  RedisConfig
	Kafka  KafkaConfig
	Engine EngineConfig
}

// RedisConfig configures the market data cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"MARKET_CACHE_TTL" env-default:"10m"`
}

// KafkaConfig configures the activity publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" env-separator:","`
	ActivityTopic string   `env:"KAFKA_ACTIVITY_TOPIC" env-default:"pricing-activity"`
}

// EngineConfig holds the prediction engine tunables.
type EngineConfig struct {
	LookupTimeout               time.Duration `env:"PRICING_LOOKUP_TIMEOUT" env-default:"2s"`
	SinkTimeout                 time.Duration `env:"PRICING_SINK_TIMEOUT" env-default:"5s"`
	MarketDeviationThreshold    float64       `env:"PRICING_MARKET_DEVIATION_THRESHOLD" env-default:"0.15"`
	MarketPullDown              float64       `env:"PRICING_MARKET_PULL_DOWN" env-default:"-0.05"`
	MarketPushUp                float64       `env:"PRICING_MARKET_PUSH_UP" env-default:"0.03"`
	CustomerAcceptanceThreshold float64       `env:"PRICING_CUSTOMER_ACCEPTANCE_THRESHOLD" env-default:"0.7"`
	CustomerDiscount            float64       `env:"PRICING_CUSTOMER_DISCOUNT" env-default:"-0.08"`
	ConfidenceCap               float64       `env:"PRICING_CONFIDENCE_CAP" env-default:"0.98"`
}

// Load reads the dotenv file at dotenvPath, when present, and then the environment.
// Variables already set in the environment win over the file.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports engine settings outside their usable range.
func (c Config) Validate() error {
	e := c.Engine
	switch {
	case e.LookupTimeout <= 0:
		return errors.New("PRICING_LOOKUP_TIMEOUT must be positive")
	case e.SinkTimeout <= 0:
		return errors.New("PRICING_SINK_TIMEOUT must be positive")
	case e.MarketDeviationThreshold < 0:
		return errors.New("PRICING_MARKET_DEVIATION_THRESHOLD must be >= 0")
	case e.ConfidenceCap <= 0 || e.ConfidenceCap > 1:
		return errors.New("PRICING_CONFIDENCE_CAP must be in (0, 1]")
	case e.CustomerAcceptanceThreshold < 0 || e.CustomerAcceptanceThreshold > 1:
		return errors.New("PRICING_CUSTOMER_ACCEPTANCE_THRESHOLD must be in [0, 1]")
	}
	return nil
}

// IsDev reports whether the process runs in the development environment.
func (c Config) IsDev() bool {
	return c.Environment == envDevelopment
}

// Warnings lists settings that are missing but not fatal.
func (c Config) Warnings() []string {
	var warnings []string
	if c.AdminEmail == "" {
		warnings = append(warnings, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		warnings = append(warnings, "ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		warnings = append(warnings, "SESSION_SECRET is not set")
	}
	return warnings
}

// Pricing returns the engine configuration with the environment overrides applied.
func (c Config) Pricing() pricing.Config {
	cfg := pricing.DefaultConfig()
	cfg.LookupTimeout = c.Engine.LookupTimeout
	cfg.SinkTimeout = c.Engine.SinkTimeout
	cfg.MarketDeviationThreshold = c.Engine.MarketDeviationThreshold
	cfg.MarketPullDown = c.Engine.MarketPullDown
	cfg.MarketPushUp = c.Engine.MarketPushUp
	cfg.CustomerAcceptanceThreshold = c.Engine.CustomerAcceptanceThreshold
	cfg.CustomerDiscount = c.Engine.CustomerDiscount
	cfg.ConfidenceCap = c.Engine.ConfidenceCap
	return cfg
}
