package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Importer  ImporterConfig
	Logging   LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig holds backend connection configuration
type RedisConfig struct {
	URL string
}

// AuthConfig holds authentication specific configuration
type AuthConfig struct {
	JWTSecret            string
	AdminPassword        string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// KafkaConfig holds the optional event mirror configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// ImporterConfig holds the symbol import job configuration
type ImporterConfig struct {
	ArchiveURL      string
	TargetExchanges []string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Read from environment variables (auth.jwtSecret -> AUTH_JWTSECRET)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Every token in the system is signed with this secret; an empty value
	// is a configuration error, not something to limp along with.
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret is required")
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8500")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.idleTimeout", "120s")

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// Auth defaults
	v.SetDefault("auth.accessTokenDuration", "30m")
	v.SetDefault("auth.refreshTokenDuration", "168h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "symbol-events")

	// Rate limit defaults
	v.SetDefault("ratelimit.requestsPerMinute", 120)
	v.SetDefault("ratelimit.burstSize", 30)

	// Importer defaults
	v.SetDefault("importer.archiveURL", "https://github.com/chaitanyamurarka/DTN-Symbol-Downloader/raw/refs/heads/main/dtn_symbols/by_exchange.zip")
	v.SetDefault("importer.targetExchanges", []string{"NYSE", "CME", "NASDAQ", "EUREX"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
