package groupwire

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a gateway client. All fields
// except BaseURL are optional and have sensible defaults.
//
// Configuration can be built with the fluent builder pattern:
//
//	config := groupwire.DefaultConfig().
//	    WithBaseURL("https://gw.example.com/ajax").
//	    WithTimeout(10 * time.Second).
//	    WithObserver(groupwire.NewLogObserver(nil))
//
//	client, err := groupwire.NewClient(config)
type Config struct {
	// BaseURL is the base URL of the gateway.
	BaseURL string

	// TokenPath is the token endpoint path, relative to BaseURL.
	// Default: "/getCSRFToken.php"
	TokenPath string

	// Timeout is the HTTP request timeout, covering connection time and
	// reading the response body. Zero means no timeout, matching the
	// gateway protocol's lack of one.
	// Default: 30s
	Timeout time.Duration

	// Headers are custom headers sent with every request.
	Headers map[string]string

	// TransportConfig holds HTTP connection pool settings.
	TransportConfig TransportConfig

	// Tokens is the anti-forgery token store. If nil, the client
	// creates its own; inject one to share or isolate token state.
	Tokens *TokenStore

	// TokenSource overrides how tokens are acquired. If nil, the client
	// posts to TokenPath and uses the raw response body.
	TokenSource TokenSource

	// Observer receives request lifecycle notifications.
	// If nil, NoopObserver is used.
	Observer Observer

	// RecoverHandlerPanics converts non-ClientError panics escaping a
	// callback into an ErrHandlerPanic return from Dispatch instead of
	// re-raising them. Default: false (panics propagate).
	RecoverHandlerPanics bool
}

// TransportConfig holds HTTP transport configuration for connection
// pooling.
type TransportConfig struct {
	// MaxIdleConns is the connection pool size across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost limits connections per host, in any state.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout closes idle connections after this duration.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with defaults suitable for most hosts:
// 30 second timeout, standard pool sizes, the conventional token
// endpoint, and no observer.
func DefaultConfig() *Config {
	return &Config{
		TokenPath: "/getCSRFToken.php",
		Timeout:   30 * time.Second,
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers:  make(map[string]string),
		Observer: &NoopObserver{},
	}
}

// WithBaseURL sets the gateway base URL.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithTokenPath sets the token endpoint path.
func (c *Config) WithTokenPath(path string) *Config {
	c.TokenPath = path
	return c
}

// WithTimeout sets the request timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithHeader adds a custom header sent with all requests.
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithTokens sets the token store, replacing the client-private one.
func (c *Config) WithTokens(store *TokenStore) *Config {
	c.Tokens = store
	return c
}

// WithTokenSource sets a custom token acquisition function.
func (c *Config) WithTokenSource(src TokenSource) *Config {
	c.TokenSource = src
	return c
}

// WithObserver sets the lifecycle observer.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithRecoverHandlerPanics enables panic suppression at the dispatch
// boundary for panics that are not ClientError.
func (c *Config) WithRecoverHandlerPanics() *Config {
	c.RecoverHandlerPanics = true
	return c
}

// Validate validates the configuration and fills defaults for missing
// values. It is called automatically by NewClient.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.TokenPath == "" {
		c.TokenPath = "/getCSRFToken.php"
	}
	if c.Timeout < 0 {
		c.Timeout = 30 * time.Second
	}
	if c.TransportConfig.MaxIdleConns <= 0 {
		c.TransportConfig.MaxIdleConns = 100
	}
	if c.TransportConfig.MaxConnsPerHost <= 0 {
		c.TransportConfig.MaxConnsPerHost = 10
	}
	if c.TransportConfig.IdleConnTimeout <= 0 {
		c.TransportConfig.IdleConnTimeout = 90 * time.Second
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	return nil
}

// configFile is the on-disk YAML shape accepted by LoadConfig.
// Durations are strings in time.ParseDuration form ("10s", "1m30s").
type configFile struct {
	BaseURL     string            `yaml:"base_url"`
	TokenPath   string            `yaml:"token_path"`
	Timeout     string            `yaml:"timeout"`
	Headers     map[string]string `yaml:"headers"`
	MaxIdle     int               `yaml:"max_idle_conns"`
	MaxPerHost  int               `yaml:"max_conns_per_host"`
	IdleTimeout string            `yaml:"idle_conn_timeout"`
}

// LoadConfig reads a YAML configuration file and returns a Config with
// defaults filled for anything the file omits.
//
// Example file:
//
//	base_url: https://gw.example.com/ajax
//	token_path: /getCSRFToken.php
//	timeout: 10s
//	headers:
//	  X-API-Key: secret
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.BaseURL = file.BaseURL
	if file.TokenPath != "" {
		cfg.TokenPath = file.TokenPath
	}
	if file.Timeout != "" {
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse config timeout: %w", err)
		}
		cfg.Timeout = d
	}
	for k, v := range file.Headers {
		cfg.Headers[k] = v
	}
	if file.MaxIdle > 0 {
		cfg.TransportConfig.MaxIdleConns = file.MaxIdle
	}
	if file.MaxPerHost > 0 {
		cfg.TransportConfig.MaxConnsPerHost = file.MaxPerHost
	}
	if file.IdleTimeout != "" {
		d, err := time.ParseDuration(file.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse config idle_conn_timeout: %w", err)
		}
		cfg.TransportConfig.IdleConnTimeout = d
	}
	return cfg, nil
}
