/**
 * @description
 * This file handles configuration management for the mass-payout service.
 * It loads settings from environment variables, providing defaults for cron
 * schedules and retry policy, and rejects startup when required blockchain
 * settings are missing.
 */

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the mass-payout service.
type Config struct {
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	ServerPort       string `mapstructure:"SERVER_PORT"`
	ServiceJWTSecret string `mapstructure:"SERVICE_JWT_SECRET"`
	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RedisURL         string `mapstructure:"REDIS_URL"`

	MirrorNodeURL          string `mapstructure:"BLOCKCHAIN_MIRROR_NODE_URL"`
	ContractID             string `mapstructure:"BLOCKCHAIN_CONTRACT_ID"`
	TokenDecimals          int    `mapstructure:"BLOCKCHAIN_TOKEN_DECIMALS"`
	ListenerStartTimestamp string `mapstructure:"BLOCKCHAIN_LISTENER_START_TIMESTAMP"`
	USDCAddress            string `mapstructure:"HEDERA_USDC_ADDRESS"`

	HederaGatewayURL string `mapstructure:"HEDERA_GATEWAY_URL"`
	HederaAPIKey     string `mapstructure:"HEDERA_GATEWAY_API_KEY"`
	HederaOperatorID string `mapstructure:"HEDERA_OPERATOR_ID"`

	ScheduledPayoutCron string `mapstructure:"SCHEDULED_PAYOUT_CRON"`
	EventPollCron       string `mapstructure:"EVENT_POLL_CRON"`
	HolderRetryCron     string `mapstructure:"HOLDER_RETRY_CRON"`

	HolderRetryBaseDelay   time.Duration `mapstructure:"HOLDER_RETRY_BASE_DELAY"`
	HolderRetryMaxAttempts int           `mapstructure:"HOLDER_RETRY_MAX_ATTEMPTS"`
	HolderRetryBatchSize   int           `mapstructure:"HOLDER_RETRY_BATCH_SIZE"`

	PayoutRateLimit  int           `mapstructure:"PAYOUT_RATE_LIMIT"`
	PayoutRateWindow time.Duration `mapstructure:"PAYOUT_RATE_WINDOW"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8084")
	viper.SetDefault("SCHEDULED_PAYOUT_CRON", "0 6 * * *")  // Daily at 06:00.
	viper.SetDefault("EVENT_POLL_CRON", "*/2 * * * *")      // Every two minutes.
	viper.SetDefault("HOLDER_RETRY_CRON", "*/5 * * * *")    // Every five minutes.
	viper.SetDefault("HOLDER_RETRY_BASE_DELAY", "5m")
	viper.SetDefault("HOLDER_RETRY_MAX_ATTEMPTS", 5)
	viper.SetDefault("HOLDER_RETRY_BATCH_SIZE", 100)
	viper.SetDefault("PAYOUT_RATE_LIMIT", 10)
	viper.SetDefault("PAYOUT_RATE_WINDOW", "1m")
	viper.SetDefault("BLOCKCHAIN_TOKEN_DECIMALS", 6)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("SERVICE_JWT_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("BLOCKCHAIN_MIRROR_NODE_URL")
	_ = viper.BindEnv("BLOCKCHAIN_CONTRACT_ID")
	_ = viper.BindEnv("BLOCKCHAIN_TOKEN_DECIMALS")
	_ = viper.BindEnv("BLOCKCHAIN_LISTENER_START_TIMESTAMP")
	_ = viper.BindEnv("HEDERA_USDC_ADDRESS")
	_ = viper.BindEnv("HEDERA_GATEWAY_URL")
	_ = viper.BindEnv("HEDERA_GATEWAY_API_KEY")
	_ = viper.BindEnv("HEDERA_OPERATOR_ID")
	_ = viper.BindEnv("SCHEDULED_PAYOUT_CRON")
	_ = viper.BindEnv("EVENT_POLL_CRON")
	_ = viper.BindEnv("HOLDER_RETRY_CRON")
	_ = viper.BindEnv("HOLDER_RETRY_BASE_DELAY")
	_ = viper.BindEnv("HOLDER_RETRY_MAX_ATTEMPTS")
	_ = viper.BindEnv("HOLDER_RETRY_BATCH_SIZE")
	_ = viper.BindEnv("PAYOUT_RATE_LIMIT")
	_ = viper.BindEnv("PAYOUT_RATE_WINDOW")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// The payout settlement currency is not defaultable; refusing to start is
	// better than disbursing in the wrong token.
	if strings.TrimSpace(config.USDCAddress) == "" {
		return nil, errors.New("HEDERA_USDC_ADDRESS is required")
	}

	return &config, nil
}

// DefaultStartTimestamp converts the configured ISO listener start date into
// the seconds.millis fixed-point string used as the default event cursor.
func (c *Config) DefaultStartTimestamp() (string, error) {
	raw := strings.TrimSpace(c.ListenerStartTimestamp)
	if raw == "" {
		return "0.000", nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return "", fmt.Errorf("parse BLOCKCHAIN_LISTENER_START_TIMESTAMP: %w", err)
	}

	return fmt.Sprintf("%d.%03d", t.Unix(), t.Nanosecond()/int(time.Millisecond)), nil
}
