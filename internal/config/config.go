package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds the process settings. Session data and user preferences are
// not here; they live in the store file.
type Config struct {
	DataDir      string        `koanf:"data_dir" validate:"required"`
	StorePath    string        `koanf:"store_path"`
	DownloadsDir string        `koanf:"downloads_dir"`
	Log          LogConfig     `koanf:"log"`
	Remote       RemoteConfig  `koanf:"remote"`
	Breaker      BreakerConfig `koanf:"breaker"`
	Timers       TimerConfig   `koanf:"timers"`
	Status       StatusConfig  `koanf:"status"`
	Journal      JournalConfig `koanf:"journal"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=console json"`
}

// RemoteConfig tunes the HTTP transport.
type RemoteConfig struct {
	Timeout   time.Duration `koanf:"timeout" validate:"gte=0"`
	UserAgent string        `koanf:"user_agent"`
}

// BreakerConfig tunes the gateway circuit breaker. Failures of zero disables it.
type BreakerConfig struct {
	Failures uint32        `koanf:"failures"`
	Timeout  time.Duration `koanf:"timeout" validate:"gte=0"`
}

// TimerConfig holds the fixed periods of the license and update checks.
type TimerConfig struct {
	LicenseInterval    time.Duration `koanf:"license_interval" validate:"gt=0"`
	UpdateInterval     time.Duration `koanf:"update_interval" validate:"gt=0"`
	UpdateInitialDelay time.Duration `koanf:"update_initial_delay" validate:"gte=0"`
}

// StatusConfig places the agent's local HTTP endpoint. One-shot commands
// reach a running agent through it.
type StatusConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

// JournalConfig controls the delivery journal.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

const (
	// PathEnvVar overrides the config file location.
	PathEnvVar = "BRIDGE_CONFIG"
	envPrefix  = "BRIDGE_"

	defaultConfigPath = "~/.config/industria-bridge/config.yaml"
	defaultDataDir    = "~/.config/industria-bridge"
	defaultDownloads  = "~/Downloads"
	defaultStatusAddr = "127.0.0.1:47455"
)

func defaultConfig() Config {
	return Config{
		DataDir:      defaultDataDir,
		DownloadsDir: defaultDownloads,
		Log:          LogConfig{Level: "info", Format: "console"},
		Remote:       RemoteConfig{Timeout: 30 * time.Second},
		Breaker:      BreakerConfig{Failures: 5, Timeout: time.Minute},
		Timers: TimerConfig{
			LicenseInterval:    time.Hour,
			UpdateInterval:     6 * time.Hour,
			UpdateInitialDelay: 10 * time.Second,
		},
		Status:  StatusConfig{Addr: defaultStatusAddr},
		Journal: JournalConfig{Enabled: true},
	}
}

// Load layers defaults, an optional YAML file and BRIDGE_* environment
// variables (highest priority). A .env file in the working directory is
// loaded into the environment first. A missing config file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(resolved); err == nil {
		if err := k.Load(file.Provider(resolved), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// finish expands paths and derives the ones left empty.
func (c *Config) finish() error {
	dataDir, err := expandPath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	c.DataDir = dataDir

	if strings.TrimSpace(c.StorePath) == "" {
		c.StorePath = filepath.Join(c.DataDir, "config.toml")
	}
	c.StorePath = mustExpand(c.StorePath)

	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.DataDir, "journal.sqlite")
	}
	c.Journal.Path = mustExpand(c.Journal.Path)

	if strings.TrimSpace(c.DownloadsDir) == "" {
		c.DownloadsDir = defaultDownloads
	}
	c.DownloadsDir = mustExpand(c.DownloadsDir)
	return nil
}

// AgentFilePath is where a running agent records its pid and bound address.
// It sits beside the store file the agent owns.
func (c Config) AgentFilePath() string {
	return filepath.Join(filepath.Dir(c.StorePath), "agent.json")
}

// LogPath returns the append-only log file the log viewer reads.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir + "/logs/bridge.log")
	}
	return filepath.Join(c.DataDir, "logs", "bridge.log")
}

// envKey maps BRIDGE_LOG__LEVEL to log.level and BRIDGE_DATA_DIR to data_dir:
// a double underscore separates sections.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(PathEnvVar)
	}
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

// ExpandPath resolves a leading ~ and makes path absolute.
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
