// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Storage backends supported by the ledger.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBSource          string        `mapstructure:"DB_SOURCE"`
	StorageBackend    string        `mapstructure:"STORAGE_BACKEND"`
	ServerAddress     string        `mapstructure:"SERVER_ADDRESS"`
	TokenType         string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AdminAPIKey       string        `mapstructure:"ADMIN_API_KEY"`
	RedisAddress      string        `mapstructure:"REDIS_ADDRESS"`
	IdempotencyTTL    time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	NATSURL           string        `mapstructure:"NATS_URL"`
	NATSSubject       string        `mapstructure:"NATS_SUBJECT"`
	Environement      string        `mapstructure:"GO_ENV"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("STORAGE_BACKEND", StoragePostgres)
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("NATS_SUBJECT", "casino.ledger")
	v.SetDefault("GO_ENV", "production")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
