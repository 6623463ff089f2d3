// Package gwconfig loads the gateway's configuration (spec.md §6.5) from a
// YAML file via gopkg.in/yaml.v3 — a direct teacher dependency — with
// environment-variable overrides for secrets, in the style of
// pkg/auth/config.go's struct-of-structs-with-defaults.
package gwconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete set of options enumerated in spec.md §6.5.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// ProxyAPIKey is the master key accepted for all authentication
	// modes (spec.md §6.5 "proxy_api_key").
	ProxyAPIKey string `yaml:"proxy_api_key"`

	// Region is the default upstream region.
	Region string `yaml:"region"`

	// RefreshToken and ProfileArn are the single-tenant defaults.
	RefreshToken string `yaml:"refresh_token"`
	ProfileArn   string `yaml:"profile_arn"`

	// ClientID and ClientSecret are only meaningful when the default
	// refresh token is OIDC-dialect (spec.md §3's RefreshCredentials:
	// "when auth_kind = OIDC also client_id + client_secret"). Their
	// presence is what selects OIDC over SOCIAL for the single-tenant
	// default credential — spec.md §6.5 has no separate auth_kind knob.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// CredsFile is a local file path for persisted credentials. It is
	// read and written with the os package; an http URL is not fetched.
	CredsFile string `yaml:"creds_file"`

	TokenRefreshThreshold time.Duration `yaml:"token_refresh_threshold"`

	MaxRetries     int           `yaml:"max_retries"`
	BaseRetryDelay time.Duration `yaml:"base_retry_delay"`

	FirstTokenTimeout     time.Duration `yaml:"first_token_timeout"`
	FirstTokenMaxRetries  int           `yaml:"first_token_max_retries"`
	NonStreamTimeout      time.Duration `yaml:"non_stream_timeout"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	ToolDescriptionMaxLength int `yaml:"tool_description_max_length"`

	SlowModelPatterns    []string `yaml:"slow_model_patterns"`
	SlowModelMultiplier  float64  `yaml:"slow_model_multiplier"`

	AuthCacheSize int `yaml:"auth_cache_size"`
}

// ServerConfig is the HTTP listener configuration, an ambient addition
// carried over in shape from the teacher's backendtypes.BackendConfig.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Defaults returns a Config populated with the defaults named throughout
// spec.md §4.1–§4.3 and §6.5.
func Defaults() Config {
	return Config{
		Server:                   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Region:                   "us-east-1",
		TokenRefreshThreshold:    300 * time.Second,
		MaxRetries:               3,
		BaseRetryDelay:           1 * time.Second,
		FirstTokenTimeout:        60 * time.Second,
		FirstTokenMaxRetries:     3,
		NonStreamTimeout:         600 * time.Second,
		RateLimitPerMinute:       0,
		ToolDescriptionMaxLength: 0,
		SlowModelMultiplier:      1.5,
		AuthCacheSize:            100,
	}
}

// Load reads a YAML config file (if path is non-empty) over top of
// Defaults, then applies environment-variable overrides for the fields
// that normally carry secrets.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("gwconfig: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("gwconfig: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KIRO_PROXY_API_KEY"); v != "" {
		cfg.ProxyAPIKey = v
	}
	if v := os.Getenv("KIRO_REFRESH_TOKEN"); v != "" {
		cfg.RefreshToken = v
	}
	if v := os.Getenv("KIRO_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("KIRO_PROFILE_ARN"); v != "" {
		cfg.ProfileArn = v
	}
	if v := os.Getenv("KIRO_CREDS_FILE"); v != "" {
		cfg.CredsFile = v
	}
}
