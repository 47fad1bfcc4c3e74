// Package config reads the inputs of the rook-webhook action and receiver from the
// environment. GitHub Actions exposes each action input as an INPUT_<NAME> variable;
// values may also be supplied in a .env file, which never overrides the real
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	actionPrefix   = "INPUT"
	receiverPrefix = "RECEIVER"

	DefaultExchange       = "rook-webhook"
	DefaultPushgatewayJob = "rook-webhook"
	DefaultReceiverPort   = 8080
	DefaultHistorySize    = 100
)

var (
	ErrMissingVariable = errors.New("missing environment variable")
	ErrInvalidVariable = errors.New("invalid environment variable")
)

// Config holds the inputs of a single webhook delivery
type Config struct {
	Endpoint string
	Secret   []byte
	Body     []byte

	// Timeout bounds the delivery; zero means no timeout
	Timeout   time.Duration
	UserAgent string

	LogFormat string
	Debug     bool

	AMQP        AMQPConfig
	Pushgateway PushgatewayConfig
}

// AMQPConfig enables publishing the delivery outcome to a RabbitMQ fanout exchange when
// URL is set
type AMQPConfig struct {
	URL      string
	Exchange string
}

// PushgatewayConfig enables pushing delivery metrics to a Prometheus Pushgateway when
// URL is set
type PushgatewayConfig struct {
	URL string
	Job string
}

// LogValue keeps the secret and body out of log output
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.Int("secretBytes", len(c.Secret)),
		slog.Int("bodyBytes", len(c.Body)),
		slog.Duration("timeout", c.Timeout),
		slog.String("logFormat", c.LogFormat),
		slog.Bool("amqp", c.AMQP.URL != ""),
		slog.Bool("pushgateway", c.Pushgateway.URL != ""),
	)
}

func (c *Config) String() string {
	return fmt.Sprintf("endpoint=%s secret=[%d bytes redacted] body=[%d bytes]", c.Endpoint, len(c.Secret), len(c.Body))
}

// ReceiverConfig holds the settings of the signature-verifying receiver
type ReceiverConfig struct {
	Secret      []byte
	BindAddr    string
	Port        int
	HistorySize int
	LogFormat   string
	Debug       bool
}

// Load reads the action's inputs from the environment, falling back to any of the
// given .env files (".env" if none are named) for variables that aren't set
func Load(envFiles ...string) (*Config, error) {
	v, err := newViper(actionPrefix, envFiles)
	if err != nil {
		return nil, err
	}

	endpoint, err := requireVar(v, actionPrefix, "endpoint")
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, envName(actionPrefix, "endpoint"))
	}
	secret, err := requireVar(v, actionPrefix, "secret")
	if err != nil {
		return nil, err
	}
	body, err := requireVar(v, actionPrefix, "body")
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration(v, actionPrefix, "timeout")
	if err != nil {
		return nil, err
	}
	logFormat, err := parseLogFormat(v, actionPrefix)
	if err != nil {
		return nil, err
	}

	return &Config{
		Endpoint:  endpoint,
		Secret:    []byte(secret),
		Body:      []byte(body),
		Timeout:   timeout,
		UserAgent: v.GetString("user_agent"),
		LogFormat: logFormat,
		Debug:     v.GetBool("debug"),
		AMQP: AMQPConfig{
			URL:      strings.TrimSpace(v.GetString("amqp_url")),
			Exchange: valueOrDefault(v.GetString("amqp_exchange"), DefaultExchange),
		},
		Pushgateway: PushgatewayConfig{
			URL: strings.TrimSpace(v.GetString("pushgateway_url")),
			Job: valueOrDefault(v.GetString("pushgateway_job"), DefaultPushgatewayJob),
		},
	}, nil
}

// LoadReceiver reads the receiver's settings from RECEIVER_* variables
func LoadReceiver(envFiles ...string) (*ReceiverConfig, error) {
	v, err := newViper(receiverPrefix, envFiles)
	if err != nil {
		return nil, err
	}
	v.SetDefault("port", DefaultReceiverPort)
	v.SetDefault("history", DefaultHistorySize)

	secret, err := requireVar(v, receiverPrefix, "secret")
	if err != nil {
		return nil, err
	}
	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidVariable, envName(receiverPrefix, "port"), v.GetString("port"))
	}
	history := v.GetInt("history")
	if history <= 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidVariable, envName(receiverPrefix, "history"), v.GetString("history"))
	}
	logFormat, err := parseLogFormat(v, receiverPrefix)
	if err != nil {
		return nil, err
	}

	return &ReceiverConfig{
		Secret:      []byte(secret),
		BindAddr:    v.GetString("bind_addr"),
		Port:        port,
		HistorySize: history,
		LogFormat:   logFormat,
		Debug:       v.GetBool("debug"),
	}, nil
}

// newViper prepares a viper instance that resolves key "foo" from <PREFIX>_FOO, with
// values read from .env files serving as defaults
func newViper(prefix string, envFiles []string) (*viper.Viper, error) {
	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	for name, value := range dotenv {
		if key, ok := strings.CutPrefix(name, prefix+"_"); ok {
			v.SetDefault(strings.ToLower(key), value)
		}
	}
	return v, nil
}

func readEnvFiles(envFiles []string) (map[string]string, error) {
	explicit := len(envFiles) > 0
	if !explicit {
		envFiles = []string{".env"}
	}

	values := make(map[string]string)
	for _, path := range envFiles {
		m, err := godotenv.Read(path)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		for k, val := range m {
			if _, ok := values[k]; !ok {
				values[k] = val
			}
		}
	}
	return values, nil
}

// requireVar returns the value of a variable that must be present, though it may be empty
func requireVar(v *viper.Viper, prefix, key string) (string, error) {
	if !v.IsSet(key) {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, envName(prefix, key))
	}
	return v.GetString(key), nil
}

func parseDuration(v *viper.Viper, prefix, key string) (time.Duration, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidVariable, envName(prefix, key), s)
	}
	return d, nil
}

func parseLogFormat(v *viper.Viper, prefix string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(v.GetString("log_format")))
	switch format {
	case "":
		return "actions", nil
	case "actions", "json", "text":
		return format, nil
	}
	return "", fmt.Errorf("%w: %s=%q", ErrInvalidVariable, envName(prefix, "log_format"), format)
}

func envName(prefix, key string) string {
	return prefix + "_" + strings.ToUpper(key)
}

func valueOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
