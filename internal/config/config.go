package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything appdeck needs to reach the management API and run
// its polling loops.
type Config struct {
	APIURL          string
	Token           string
	PollInterval    time.Duration
	PollTimeout     time.Duration
	MaxAttempts     int
	RefreshInterval time.Duration
	LogLevel        string
	LogFile         string
}

const (
	defaultConfigPath      = "~/.config/appdeck/config.toml"
	defaultLogFile         = "~/.local/state/appdeck/appdeck.log"
	defaultAPIURL          = "http://127.0.0.1:3006"
	defaultPollInterval    = 5 * time.Second
	defaultRefreshInterval = 10 * time.Second
	defaultLogLevel        = "info"

	envPrefix = "APPDECK"
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		PollInterval:    defaultPollInterval,
		RefreshInterval: defaultRefreshInterval,
		LogLevel:        defaultLogLevel,
		LogFile:         mustExpand(defaultLogFile),
	}
}

// fileConfig mirrors config.toml. Durations are Go duration strings.
type fileConfig struct {
	APIURL          string `toml:"api_url"`
	Token           string `toml:"token"`
	PollInterval    string `toml:"poll_interval"`
	PollTimeout     string `toml:"poll_timeout"`
	MaxAttempts     int    `toml:"max_attempts"`
	RefreshInterval string `toml:"refresh_interval"`
	LogLevel        string `toml:"log_level"`
	LogFile         string `toml:"log_file"`
}

// envOverrides is filled by envconfig. Unset variables leave fields nil.
// Fields carry no envconfig name tag, which would add an unprefixed fallback.
type envOverrides struct {
	APIUrl          *string        `split_words:"true"`
	Token           *string        `split_words:"true"`
	PollInterval    *time.Duration `split_words:"true"`
	PollTimeout     *time.Duration `split_words:"true"`
	MaxAttempts     *int           `split_words:"true"`
	RefreshInterval *time.Duration `split_words:"true"`
	LogLevel        *string        `split_words:"true"`
	LogFile         *string        `split_words:"true"`
}

// Load reads the config file at path (the default location when empty),
// falling back to defaults when it is missing, then applies APPDECK_*
// environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := cfg.applyFile(resolved); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(raw.Token); v != "" {
		c.Token = v
	}
	if err := setDuration(&c.PollInterval, "poll_interval", raw.PollInterval); err != nil {
		return err
	}
	if err := setDuration(&c.PollTimeout, "poll_timeout", raw.PollTimeout); err != nil {
		return err
	}
	if err := setDuration(&c.RefreshInterval, "refresh_interval", raw.RefreshInterval); err != nil {
		return err
	}
	if raw.MaxAttempts != 0 {
		c.MaxAttempts = raw.MaxAttempts
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.APIUrl != nil {
		c.APIURL = strings.TrimSpace(*env.APIUrl)
	}
	if env.Token != nil {
		c.Token = strings.TrimSpace(*env.Token)
	}
	if env.PollInterval != nil {
		c.PollInterval = *env.PollInterval
	}
	if env.PollTimeout != nil {
		c.PollTimeout = *env.PollTimeout
	}
	if env.MaxAttempts != nil {
		c.MaxAttempts = *env.MaxAttempts
	}
	if env.RefreshInterval != nil {
		c.RefreshInterval = *env.RefreshInterval
	}
	if env.LogLevel != nil {
		c.LogLevel = strings.TrimSpace(*env.LogLevel)
	}
	if env.LogFile != nil {
		c.LogFile = strings.TrimSpace(*env.LogFile)
	}
	return nil
}

func (c *Config) normalize() error {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("poll_timeout must not be negative, got %s", c.PollTimeout)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile
	}
	logFile, err := expandPath(c.LogFile)
	if err != nil {
		return fmt.Errorf("log_file: %w", err)
	}
	c.LogFile = logFile
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
