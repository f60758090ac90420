package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/poll"
	"github.com/soypete/volcasr/pkg/wire"
)

// DefaultFileName is looked up in the working directory, then as a dotfile in home
const DefaultFileName = "volcasr.yaml"

// Environment variables that override file values
const (
	EnvAccessToken = "VOLCENGINE_ACCESS_TOKEN"
	EnvBaseURL     = "VOLCENGINE_BASE_URL"
	EnvAppID       = "VOLCENGINE_APP_ID"
	EnvAppToken    = "VOLCENGINE_APP_TOKEN"
	EnvCluster     = "VOLCENGINE_CLUSTER"
	EnvDebug       = "VOLCENGINE_DEBUG"
)

// Config represents the volcasr configuration
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	App      AppConfig      `yaml:"app"`
	Polling  PollingConfig  `yaml:"polling"`
	Subtitle SubtitleConfig `yaml:"subtitle"`
	Debug    DebugConfig    `yaml:"debug"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServiceConfig contains the endpoint and credential
type ServiceConfig struct {
	BaseURL        string `yaml:"base_url"`
	AccessToken    string `yaml:"access_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per request; 0 means no limit
}

// AppConfig contains the identity fields sent with transcription jobs
type AppConfig struct {
	AppID   string `yaml:"appid"`
	Token   string `yaml:"token"` // defaults to the service access token
	Cluster string `yaml:"cluster"`
	UID     string `yaml:"uid"`
}

// PollingConfig controls result polling
type PollingConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	MaxAttempts     int `yaml:"max_attempts"` // 0 polls until ready
}

// SubtitleConfig holds default subtitle job parameters
type SubtitleConfig struct {
	WordsPerLine int    `yaml:"words_per_line,omitempty"`
	MaxLines     int    `yaml:"max_lines,omitempty"`
	CaptionType  string `yaml:"caption_type,omitempty"`
	Language     string `yaml:"language,omitempty"`
}

// DebugConfig contains debug settings
type DebugConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig contains the optional Prometheus listener
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load loads configuration from a YAML file, applies environment overrides
// and defaults, and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wire.Errorf(wire.KindConfiguration, "load config", fmt.Errorf("failed to read config file %s: %w", path, err))
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, wire.Errorf(wire.KindConfiguration, "load config", fmt.Errorf("failed to parse config file %s: %w", path, err))
	}

	return finish(&config)
}

// LoadDefault attempts to load volcasr.yaml from the current directory or
// ~/.volcasr.yaml. Without either file the configuration comes from the
// environment alone.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(DefaultFileName); err == nil {
		return Load(DefaultFileName)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homePath := filepath.Join(home, "."+DefaultFileName)
		if _, err := os.Stat(homePath); err == nil {
			return Load(homePath)
		}
	}

	return finish(&Config{})
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. An empty path tries ".env"
// and tolerates its absence.
func LoadEnvFile(path string) error {
	optional := path == ""
	if optional {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return wire.Errorf(wire.KindConfiguration, "load env file", err)
	}
	return nil
}

func finish(config *Config) (*Config, error) {
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.setDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables that are set
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAccessToken, &c.Service.AccessToken)
	set(EnvBaseURL, &c.Service.BaseURL)
	set(EnvAppID, &c.App.AppID)
	set(EnvAppToken, &c.App.Token)
	set(EnvCluster, &c.App.Cluster)

	if v, ok := lookup(EnvDebug); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return wire.Errorf(wire.KindConfiguration, "load config", fmt.Errorf("invalid %s: %w", EnvDebug, err))
		}
		c.Debug.Enabled = enabled
	}
	return nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = client.DefaultBaseURL
	}
	if c.App.Token == "" {
		c.App.Token = c.Service.AccessToken
	}
	if c.Polling.IntervalSeconds == 0 {
		c.Polling.IntervalSeconds = int(poll.DefaultInterval / time.Second)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Service.AccessToken == "" {
		return wire.Errorf(wire.KindConfiguration, "validate config",
			fmt.Errorf("access token is required (set service.access_token or %s)", EnvAccessToken))
	}
	if c.Service.TimeoutSeconds < 0 {
		return wire.Errorf(wire.KindConfiguration, "validate config",
			fmt.Errorf("timeout_seconds cannot be negative: %d", c.Service.TimeoutSeconds))
	}
	if c.Polling.IntervalSeconds < 0 {
		return wire.Errorf(wire.KindConfiguration, "validate config",
			fmt.Errorf("interval_seconds cannot be negative: %d", c.Polling.IntervalSeconds))
	}
	if c.Polling.MaxAttempts < 0 {
		return wire.Errorf(wire.KindConfiguration, "validate config",
			fmt.Errorf("max_attempts cannot be negative: %d", c.Polling.MaxAttempts))
	}
	return nil
}

// ClientConfig returns the transport settings
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:     c.Service.BaseURL,
		AccessToken: c.Service.AccessToken,
		Timeout:     time.Duration(c.Service.TimeoutSeconds) * time.Second,
		Debug:       c.Debug.Enabled,
	}
}

// PollOptions returns the polling settings
func (c *Config) PollOptions() poll.Options {
	return poll.Options{
		Interval:    time.Duration(c.Polling.IntervalSeconds) * time.Second,
		MaxAttempts: c.Polling.MaxAttempts,
	}
}
