package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Reconnect    ReconnectConfig    `mapstructure:"reconnect"`
	Notification NotificationConfig `mapstructure:"notification"`
	Refresh      RefreshConfig      `mapstructure:"refresh"`
	Status       StatusConfig       `mapstructure:"status"`
	Log          LogConfig          `mapstructure:"log"`
	Instance     InstanceConfig     `mapstructure:"instance"`
}

type ServerConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ReconnectConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type NotificationConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RefreshConfig struct {
	// Cron spec for periodic mirror refresh; empty disables the refresher.
	Spec string `mapstructure:"spec"`
}

type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func applyDefaults() {
	// Set default values
	viper.SetDefault("server.url", "ws://localhost:8080")
	viper.SetDefault("server.dial_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Second)
	viper.SetDefault("reconnect.delay", 3*time.Second)
	viper.SetDefault("notification.ttl", 5*time.Second)
	viper.SetDefault("refresh.spec", "")
	viper.SetDefault("status.addr", "127.0.0.1:8081")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("instance.id", "")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("server.url", "MARKET_SERVER_URL")
	viper.BindEnv("server.dial_timeout", "MARKET_DIAL_TIMEOUT")
	viper.BindEnv("server.write_timeout", "MARKET_WRITE_TIMEOUT")
	viper.BindEnv("reconnect.delay", "MARKET_RECONNECT_DELAY")
	viper.BindEnv("notification.ttl", "MARKET_NOTIFICATION_TTL")
	viper.BindEnv("refresh.spec", "MARKET_REFRESH_SPEC")
	viper.BindEnv("status.addr", "MARKET_STATUS_ADDR")
	viper.BindEnv("log.level", "MARKET_LOG_LEVEL")
	viper.BindEnv("instance.id", "MARKET_INSTANCE_ID")
}

func Load() (*Config, error) {
	applyDefaults()

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/market-client/")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, continue with defaults and environment variables
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path. Unset keys keep
// their defaults; the file must exist.
func LoadFromFile(configPath string) (*Config, error) {
	applyDefaults()

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s, Reconnect: %s, Status: %s, Instance: %s",
		c.Server.URL,
		c.Reconnect.Delay,
		c.Status.Addr,
		c.Instance.ID,
	)
}
