// Package config loads the server configuration from an optional .env file,
// an optional YAML file, the environment and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/inboxreader/internal/logging"
)

// Transports accepted by the serve command.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

const (
	DefaultLogLevel       = "info"
	DefaultHTTPAddr       = "127.0.0.1:8000"
	DefaultJMAPSessionURL = "https://api.fastmail.com/jmap/session"
	DefaultJMAPTimeout    = 30 * time.Second
	DefaultRateLimitRPS   = 10.0
	DefaultRateLimitBurst = 20
	DefaultMetricsAddr    = "127.0.0.1:9090"
)

// Keys double as environment variable names once upper-cased.
const (
	keyBearerToken      = "bearer_token"
	keyLogLevel         = "log_level"
	keyLogFormat        = "log_format"
	keyTransport        = "transport"
	keyHTTPAddr         = "http_addr"
	keyJMAPSessionURL   = "jmap_session_url"
	keyJMAPTimeout      = "jmap_timeout"
	keyFastmailAPIToken = "fastmail_api_token"
	keyRateLimitRPS     = "rate_limit_rps"
	keyRateLimitBurst   = "rate_limit_burst"
	keyMetricsEnabled   = "metrics_enabled"
	keyMetricsAddr      = "metrics_addr"
)

// FlagConfig names the flag holding the optional YAML config file path.
const FlagConfig = "config"

// flagKeys maps flag names registered by BindFlags to config keys.
var flagKeys = map[string]string{
	"http-addr":       keyHTTPAddr,
	"log-level":       keyLogLevel,
	"log-format":      keyLogFormat,
	"transport":       keyTransport,
	"metrics-enabled": keyMetricsEnabled,
	"metrics-addr":    keyMetricsAddr,
}

// Config is the immutable process configuration.
type Config struct {
	// BearerToken is the server-wide static credential every HTTP call must
	// present.
	BearerToken string `mapstructure:"bearer_token"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Transport string `mapstructure:"transport"`
	HTTPAddr  string `mapstructure:"http_addr"`

	JMAPSessionURL string        `mapstructure:"jmap_session_url"`
	JMAPTimeout    time.Duration `mapstructure:"jmap_timeout"`

	// FastmailAPIToken is only read by the stdio transport. Over HTTP every
	// call carries its own token.
	FastmailAPIToken string `mapstructure:"fastmail_api_token"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBearerToken, "")
	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyLogFormat, logging.FormatText)
	v.SetDefault(keyTransport, TransportStreamableHTTP)
	v.SetDefault(keyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(keyJMAPSessionURL, DefaultJMAPSessionURL)
	v.SetDefault(keyJMAPTimeout, DefaultJMAPTimeout)
	v.SetDefault(keyFastmailAPIToken, "")
	v.SetDefault(keyRateLimitRPS, DefaultRateLimitRPS)
	v.SetDefault(keyRateLimitBurst, DefaultRateLimitBurst)
	v.SetDefault(keyMetricsEnabled, false)
	v.SetDefault(keyMetricsAddr, DefaultMetricsAddr)
}

// BindFlags registers the command-line overrides on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Path to a YAML config file")
	fs.String("transport", TransportStreamableHTTP, "Transport type: stdio or streamable-http. Can also use TRANSPORT env var.")
	fs.String("http-addr", DefaultHTTPAddr, "HTTP server address (for streamable-http transport). Can also use HTTP_ADDR env var.")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	fs.String("log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	fs.Bool("metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.String("metrics-addr", DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are skipped and existing variables are kept.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load resolves the configuration. flags may be nil; when set, flags
// registered with BindFlags override the environment, and --config names a
// YAML file read beneath it.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}

		if f := flags.Lookup(FlagConfig); f != nil && f.Value.String() != "" {
			path := f.Value.String()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	return cfg, nil
}

// Validate checks the configuration for the selected transport. Over stdio
// the server token is implied, so an empty BearerToken is accepted there.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStreamableHTTP:
		if strings.TrimSpace(c.BearerToken) == "" {
			return errors.New("BEARER_TOKEN is required for the streamable-http transport")
		}
	case TransportStdio:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", c.Transport, TransportStdio, TransportStreamableHTTP)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be %s or %s", c.LogFormat, logging.FormatText, logging.FormatJSON)
	}

	if c.JMAPSessionURL == "" {
		return errors.New("JMAP_SESSION_URL must not be empty")
	}
	if c.JMAPTimeout <= 0 {
		return fmt.Errorf("JMAP_TIMEOUT must be positive, got %s", c.JMAPTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %g rps burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}
