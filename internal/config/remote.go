package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/spf13/viper"
)

const maxRemoteConfigSize = 1 << 20

// FetchError is returned when the remote config file cannot be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("failed to download config file (HTTP %d)", e.StatusCode)
	}

	return fmt.Sprintf("failed to download config file: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchRemote downloads a dotenv file from url and returns its key/value pairs
// with upper case keys.
func FetchRemote(ctx context.Context, client *http.Client, url string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigSize))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return parseDotenv(body)
}

func parseDotenv(body []byte) (map[string]string, error) {
	v := viper.New()
	v.SetConfigType("env")

	if err := v.ReadConfig(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		values[strings.ToUpper(key)] = v.GetString(key)
	}

	return values, nil
}

// ApplyRemote fetches the remote config file and exports its values into the
// process environment, overriding what is already set. On error the
// environment is left untouched.
func ApplyRemote(ctx context.Context, client *http.Client, url string) error {
	logger := logctx.LoggerFromContext(ctx)

	if url == "" {
		logger.Warn("CONFIG_FILE_URL is not set, using local environment only")

		return nil
	}

	logger.Info("downloading config file")

	values, err := FetchRemote(ctx, client, url)
	if err != nil {
		return err
	}

	for key, value := range values {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	logger.Info("loaded config values", "count", len(values))

	return nil
}

// Load applies the remote config file named by CONFIG_FILE_URL, when present,
// and then reads the environment.
func Load(ctx context.Context, client *http.Client) (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.ConfigFileURL == "" {
		return cfg, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.ConfigFetchTimeout)
	defer cancel()

	if err := ApplyRemote(fetchCtx, client, cfg.ConfigFileURL); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to load remote config", "err", err)

		return cfg, nil
	}

	return LoadConfig()
}
