package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/macperms/pkg/permissions"
	"github.com/go-drift/macperms/pkg/tccdb"
)

// EnvPath names the environment variable that points at a config file.
const EnvPath = "MACPERMS_CONFIG"

// Config represents the optional macperms.yaml configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
	Folders FoldersConfig `yaml:"folders"`
	TCC     TCCConfig     `yaml:"tcc"`
	Watch   WatchConfig   `yaml:"watch"`
}

// RequestConfig controls how long a request waits for the user.
type RequestConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// FoldersConfig contains folder probe defaults.
type FoldersConfig struct {
	AppID string `yaml:"app_id,omitempty"`
}

// TCCConfig locates the privacy databases.
type TCCConfig struct {
	UserDB   string `yaml:"user_db,omitempty"`
	SystemDB string `yaml:"system_db,omitempty"`
}

// WatchConfig tunes the change watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Path           string
	RequestTimeout time.Duration
	LogLevel       string
	Verbose        bool
	AppID          string
	UserDB         string
	SystemDB       string
	WatchDebounce  time.Duration
}

// Default values applied by Resolve.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "warn"
	DefaultWatchDebounce  = 250 * time.Millisecond
)

// Path picks the config file: the explicit flag value, then $MACPERMS_CONFIG,
// then macperms/macperms.yaml under the user config directory.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(EnvPath)); env != "" {
		return env
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "macperms", "macperms.yaml")
}

// LoadOptional reads the config file at path if present.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolve loads the config file (if present) and resolves defaults. home is
// the directory the user privacy database is found under.
func Resolve(path, home string) (*Resolved, error) {
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Request.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf("request.timeout must be positive (got %s)", timeout)
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if level == "" {
		level = DefaultLogLevel
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}

	appID := strings.TrimSpace(cfg.Folders.AppID)
	if appID != "" {
		if err := ValidateAppID(appID); err != nil {
			return nil, err
		}
	}

	userDB := strings.TrimSpace(cfg.TCC.UserDB)
	if userDB == "" && home != "" {
		userDB = tccdb.DefaultUserPath(home)
	}
	systemDB := strings.TrimSpace(cfg.TCC.SystemDB)
	if systemDB == "" {
		systemDB = tccdb.SystemPath
	}

	debounce := cfg.Watch.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	return &Resolved{
		Path:           path,
		RequestTimeout: timeout,
		LogLevel:       level,
		Verbose:        cfg.Log.Verbose,
		AppID:          appID,
		UserDB:         userDB,
		SystemDB:       systemDB,
		WatchDebounce:  debounce,
	}, nil
}

func validateLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", level)
	}
}

// ValidateAppID checks that appID looks like a bundle identifier.
func ValidateAppID(appID string) error {
	return permissions.ValidateAppID(appID)
}
