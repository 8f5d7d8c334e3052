package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	// ConfigFileURL points at a remote dotenv file applied before the rest is read.
	ConfigFileURL      string        `envconfig:"CONFIG_FILE_URL"`
	ConfigFetchTimeout time.Duration `envconfig:"CONFIG_FETCH_TIMEOUT" default:"10s"`

	BotToken          string        `envconfig:"BOT_TOKEN"`
	BotAPIEndpoint    string        `envconfig:"BOT_API_ENDPOINT"`
	BotPollTimeout    int           `envconfig:"BOT_POLL_TIMEOUT" default:"60"`
	AuthorizedUsers   ChatIDs       `envconfig:"USER_LIST"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"INFO"`
	DiscordWebhookURL string        `envconfig:"DISCORD_WEBHOOK_URL"`
	StatusPingTimeout time.Duration `envconfig:"STATUS_PING_TIMEOUT" default:"5s"`

	Web struct {
		Port            int           `envconfig:"SERVER_PORT" default:"8080"`
		Host            string        `split_words:"true" default:"0.0.0.0"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}

	Telemetry struct {
		Enabled      bool   `split_words:"true" default:"true"`
		ServiceName  string `split_words:"true" default:"tg_file_listener"`
		OTLPEndpoint string `split_words:"true"`
	}
}

// ChatIDs is the allow-list of chat identifiers, given as a JSON array
// (e.g. [-1001234, 5678]) or a comma separated list.
type ChatIDs []int64

// Decode implements envconfig.Decoder.
func (c *ChatIDs) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*c = nil

		return nil
	}

	if !strings.HasPrefix(value, "[") {
		value = "[" + value + "]"
	}

	var ids []int64
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return fmt.Errorf("invalid chat id list: %w", err)
	}

	*c = ids

	return nil
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

// BindAddress is the HTTP listen address.
func (c *Config) BindAddress() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
