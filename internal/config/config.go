package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ibeckermayer/autobip/internal/types"
)

const appName = "autobip"

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Analysis AnalysisConfig `toml:"analysis"`
	Trends   TrendsConfig   `toml:"trends"`
	Server   ServerConfig   `toml:"server"`
	Journal  JournalConfig  `toml:"journal"`
	Log      LogConfig      `toml:"log"`
}

type AnalysisConfig struct {
	APIKey         string     `toml:"api_key"`
	BaseURL        string     `toml:"base_url"`
	TextModel      string     `toml:"text_model"`
	RewriteModel   string     `toml:"rewrite_model"`
	ImageModel     string     `toml:"image_model"`
	DefaultTone    types.Tone `toml:"default_tone"`
	RequestTimeout Duration   `toml:"request_timeout"`
}

type TrendsConfig struct {
	Industry      string   `toml:"industry"`
	ResearchTopic string   `toml:"research_topic"`
	InitialDelay  Duration `toml:"initial_delay"`
	Schedule      string   `toml:"schedule"` // cron spec, empty disables repeats
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // defaults to <cache>/journal.db
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Duration lets TOML carry values like "5s" or "2m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Analysis: AnalysisConfig{
			TextModel:    "gemini-2.5-flash",
			RewriteModel: "gemini-3-pro-preview",
			ImageModel:   "gemini-3-pro-image-preview",
			DefaultTone:  types.ToneHumbleBuilder,
		},
		Trends: TrendsConfig{
			Industry:      "SaaS & Developer Tools",
			ResearchTopic: "SaaS & AI",
			InitialDelay:  Duration{5 * time.Second},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	if dir := os.Getenv("AUTOBIP_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path. Keys missing from the file keep their
// default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config file, falling back to defaults when it does
// not exist. The returned bool reports whether the file was found.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := LoadFrom(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	return nil, false, fmt.Errorf("failed to load config %s: %w", path, err)
}

// ApplyEnv overlays environment variables on top of the file values.
// A .env file in the working directory is loaded first if present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	for _, key := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			c.Analysis.APIKey = v
			break
		}
	}
	if v := os.Getenv("AUTOBIP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("AUTOBIP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AUTOBIP_BASE_URL"); v != "" {
		c.Analysis.BaseURL = v
	}
}

// Validate reports every problem in the config at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Analysis.TextModel == "" {
		result = multierror.Append(result, errors.New("analysis.text_model is required"))
	}
	if c.Analysis.ImageModel == "" {
		result = multierror.Append(result, errors.New("analysis.image_model is required"))
	}
	switch c.Analysis.DefaultTone {
	case types.ToneProfessional, types.ToneHumbleBuilder, types.ToneContrarian, types.ToneDataFocused:
	default:
		result = multierror.Append(result, fmt.Errorf("analysis.default_tone %q is not a known tone", c.Analysis.DefaultTone))
	}
	if c.Analysis.RequestTimeout.Duration < 0 {
		result = multierror.Append(result, errors.New("analysis.request_timeout must not be negative"))
	}
	if c.Trends.InitialDelay.Duration < 0 {
		result = multierror.Append(result, errors.New("trends.initial_delay must not be negative"))
	}
	if c.Trends.Schedule != "" {
		if _, err := cron.ParseStandard(c.Trends.Schedule); err != nil {
			result = multierror.Append(result, fmt.Errorf("trends.schedule: %w", err))
		}
	}
	if c.Server.Addr == "" {
		result = multierror.Append(result, errors.New("server.addr is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	return result.ErrorOrNil()
}

// JournalPath returns the sqlite journal location
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
