/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * The encryption key is deliberately NOT defaulted or generated here: its absence
 * is a fatal configuration error enforced at bootstrap, because an auto-generated
 * key would make previously encrypted reports undecryptable after a restart.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the credit-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	XactusAPIBaseURL       string `mapstructure:"XACTUS_API_BASE_URL"`
	XactusAPIKey           string `mapstructure:"XACTUS_API_KEY"`
	XactusTimeoutSeconds   int    `mapstructure:"XACTUS_TIMEOUT_SECONDS"`
	AuthJWKSURL            string `mapstructure:"AUTH_JWKS_URL"`
	CreditEncryptionKey    string `mapstructure:"CREDIT_ENCRYPTION_KEY"`
	RetentionPeriodDays    int    `mapstructure:"RETENTION_PERIOD_DAYS"`
	PullRateLimitPerMinute int    `mapstructure:"PULL_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("XACTUS_TIMEOUT_SECONDS", 30)
	viper.SetDefault("RETENTION_PERIOD_DAYS", 730)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "credit:rate_limit")
	viper.SetDefault("PULL_RATE_LIMIT_PER_MINUTE", 0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("XACTUS_API_BASE_URL")
	_ = viper.BindEnv("XACTUS_API_KEY")
	_ = viper.BindEnv("XACTUS_TIMEOUT_SECONDS")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("CREDIT_ENCRYPTION_KEY", "CREDIT_ENCRYPTION_KEY", "CREDIT_SERVICE_ENCRYPTION_KEY")
	_ = viper.BindEnv("RETENTION_PERIOD_DAYS")
	_ = viper.BindEnv("PULL_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.CreditEncryptionKey = strings.TrimSpace(config.CreditEncryptionKey)
	if config.CreditEncryptionKey == "" {
		config.CreditEncryptionKey = strings.TrimSpace(os.Getenv("CREDIT_SERVICE_ENCRYPTION_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "credit:rate_limit"
	}

	if config.RetentionPeriodDays <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive retention period configured; using default\" days=%d", config.RetentionPeriodDays)
		config.RetentionPeriodDays = 730
	}
	if config.XactusTimeoutSeconds <= 0 {
		config.XactusTimeoutSeconds = 30
	}
	if config.PullRateLimitPerMinute < 0 {
		config.PullRateLimitPerMinute = 0
	}

	return
}
