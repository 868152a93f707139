package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no model credential is
// configured. The process must not start without one.
var ErrMissingAPIKey = errors.New("no GEMINI_API_KEY configured")

const (
	defaultProvider   = "gemini"
	defaultModel      = "gemini-2.0-flash"
	defaultResultsDir = "analysis_results"
)

type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

// Config is read once at startup and passed to the components that need
// it. Nothing mutates it afterwards.
type Config struct {
	ProjectID        string                    `yaml:"project_id"`
	Location         string                    `yaml:"location"`
	SelectedProvider string                    `yaml:"selected_provider"`
	SelectedModel    string                    `yaml:"selected_model"`
	ResultsDir       string                    `yaml:"results_dir"`
	LogLevel         string                    `yaml:"log_level"`
	LogFormat        string                    `yaml:"log_format"`
	RequestTimeout   time.Duration             `yaml:"request_timeout"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
}

func defaultConfig() *Config {
	return &Config{
		SelectedProvider: defaultProvider,
		SelectedModel:    defaultModel,
		ResultsDir:       defaultResultsDir,
		LogLevel:         "info",
		LogFormat:        "json",
		Providers:        make(map[string]ProviderConfig),
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".secmon", "config.yaml"), nil
}

// Loader resolves configuration from, in increasing precedence, a YAML
// file, a .env file of KEY=value lines and the process environment.
// Missing files are skipped.
type Loader struct {
	Path      string
	EnvFile   string
	LookupEnv func(string) (string, bool)
}

func (l Loader) Load() (*Config, error) {
	cfg, err := LoadFile(l.Path)
	if err != nil {
		return nil, err
	}

	dotenv, err := readEnvFile(l.EnvFile)
	if err != nil {
		return nil, err
	}

	lookupEnv := l.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys)
	return os.WriteFile(path, data, 0600)
}

// readEnvFile parses a .env file into upper-cased keys.
func readEnvFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	if path == "" {
		return values, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return values, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		values[strings.ToUpper(key)] = v.GetString(key)
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				*dst = v
				return
			}
		}
	}

	setString(&c.ProjectID, "PROJECT_ID")
	setString(&c.Location, "LOCATION")
	setString(&c.SelectedModel, "GEMINI_MODEL")
	setString(&c.ResultsDir, "SECMON_RESULTS_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	var key string
	setString(&key, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if key != "" {
		c.SetAPIKey(defaultProvider, key)
	}

	if v, ok := lookup("SECMON_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SECMON_REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func (c *Config) SetAPIKey(provider, key string) {
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

func (c *Config) GetAPIKey(provider string) string {
	return c.Providers[provider].APIKey
}

// APIKey returns the credential for the selected provider.
func (c *Config) APIKey() string {
	return c.GetAPIKey(c.Provider())
}

func (c *Config) Provider() string {
	if c.SelectedProvider == "" {
		return defaultProvider
	}
	return c.SelectedProvider
}

// Validate checks the conditions that are fatal at startup.
func (c *Config) Validate() error {
	if c.APIKey() == "" {
		return ErrMissingAPIKey
	}
	return nil
}
