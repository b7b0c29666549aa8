// File path: internal/config/config.go

// Package config loads the effective recollect configuration from layered
// TOML files and environment variables. The result is an explicit struct
// handed to constructors; nothing in this package is a process-wide global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultServerHost = "127.0.0.1"
	DefaultServerPort = 8765

	defaultPollInterval = 5 * time.Minute
	defaultAgentTimeout = 120 * time.Second
)

// Config is the effective runtime configuration.
type Config struct {
	DataDir       string `toml:"data_dir"`
	IndexDir      string `toml:"index_dir"`
	SessionsDB    string `toml:"sessions_db"`
	PlatformsPath string `toml:"platforms_path"`

	ClaudeDir   string `toml:"claude_dir"`
	CodexDir    string `toml:"codex_dir"`
	OpencodeDir string `toml:"opencode_dir"`
	CursorDir   string `toml:"cursor_dir"`

	ServerHost string `toml:"server_host"`
	ServerPort int    `toml:"server_port"`

	PollInterval       time.Duration `toml:"-"`
	PollIntervalString string        `toml:"poll_interval"`

	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	OpenAIAPIKey string `toml:"-"`

	AgentTimeout       time.Duration `toml:"-"`
	AgentTimeoutString string        `toml:"agent_timeout"`
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.DataDir) != "" {
		result.DataDir = strings.TrimSpace(override.DataDir)
	}
	if strings.TrimSpace(override.IndexDir) != "" {
		result.IndexDir = strings.TrimSpace(override.IndexDir)
	}
	if strings.TrimSpace(override.SessionsDB) != "" {
		result.SessionsDB = strings.TrimSpace(override.SessionsDB)
	}
	if strings.TrimSpace(override.PlatformsPath) != "" {
		result.PlatformsPath = strings.TrimSpace(override.PlatformsPath)
	}
	if strings.TrimSpace(override.ClaudeDir) != "" {
		result.ClaudeDir = strings.TrimSpace(override.ClaudeDir)
	}
	if strings.TrimSpace(override.CodexDir) != "" {
		result.CodexDir = strings.TrimSpace(override.CodexDir)
	}
	if strings.TrimSpace(override.OpencodeDir) != "" {
		result.OpencodeDir = strings.TrimSpace(override.OpencodeDir)
	}
	if strings.TrimSpace(override.CursorDir) != "" {
		result.CursorDir = strings.TrimSpace(override.CursorDir)
	}
	if strings.TrimSpace(override.ServerHost) != "" {
		result.ServerHost = strings.TrimSpace(override.ServerHost)
	}
	if override.ServerPort > 0 && override.ServerPort <= 65535 {
		result.ServerPort = override.ServerPort
	}
	if override.PollInterval > 0 {
		result.PollInterval = override.PollInterval
	}
	if strings.TrimSpace(override.PollIntervalString) != "" {
		result.PollIntervalString = strings.TrimSpace(override.PollIntervalString)
	}
	if strings.TrimSpace(override.Provider) != "" {
		result.Provider = strings.TrimSpace(override.Provider)
	}
	if strings.TrimSpace(override.Model) != "" {
		result.Model = strings.TrimSpace(override.Model)
	}
	if strings.TrimSpace(override.OpenAIAPIKey) != "" {
		result.OpenAIAPIKey = strings.TrimSpace(override.OpenAIAPIKey)
	}
	if override.AgentTimeout > 0 {
		result.AgentTimeout = override.AgentTimeout
	}
	if strings.TrimSpace(override.AgentTimeoutString) != "" {
		result.AgentTimeoutString = strings.TrimSpace(override.AgentTimeoutString)
	}
	return result
}

// Load resolves the effective configuration. Layering, lowest to highest
// precedence: built-in defaults, ~/.config/recollect/config.toml,
// ~/.recollect/config.toml, the RECOLLECT_CONFIG file, environment
// variables.
func Load() (Config, error) {
	cfg := Config{}
	for _, path := range configLayerPaths() {
		layer, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(layer)
	}
	cfg = cfg.Merge(loadConfigEnv())
	cfg.applyDefaults()
	return cfg, nil
}

func configLayerPaths() []string {
	home, err := os.UserHomeDir()
	var paths []string
	if err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "recollect", "config.toml"),
			filepath.Join(home, ".recollect", "config.toml"),
		)
	}
	if explicit := strings.TrimSpace(os.Getenv("RECOLLECT_CONFIG")); explicit != "" {
		paths = append(paths, explicit)
	}
	return paths
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func loadConfigEnv() Config {
	cfg := Config{
		DataDir:       os.Getenv("RECOLLECT_DATA_DIR"),
		IndexDir:      os.Getenv("RECOLLECT_INDEX_DIR"),
		SessionsDB:    os.Getenv("RECOLLECT_SESSIONS_DB"),
		PlatformsPath: os.Getenv("RECOLLECT_PLATFORMS_PATH"),
		ClaudeDir:     os.Getenv("RECOLLECT_CLAUDE_DIR"),
		CodexDir:      os.Getenv("RECOLLECT_CODEX_DIR"),
		OpencodeDir:   os.Getenv("RECOLLECT_OPENCODE_DIR"),
		CursorDir:     os.Getenv("RECOLLECT_CURSOR_DIR"),
		ServerHost:    os.Getenv("RECOLLECT_HOST"),
		Provider:      os.Getenv("RECOLLECT_PROVIDER"),
		Model:         os.Getenv("RECOLLECT_MODEL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
	}
	if port := strings.TrimSpace(os.Getenv("RECOLLECT_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.ServerPort = parsed
		}
	}
	if poll := strings.TrimSpace(os.Getenv("RECOLLECT_POLL_INTERVAL")); poll != "" {
		cfg.PollIntervalString = poll
	}
	if timeout := strings.TrimSpace(os.Getenv("RECOLLECT_AGENT_TIMEOUT")); timeout != "" {
		cfg.AgentTimeoutString = timeout
	}
	return cfg
}

func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(home, ".recollect")
	}
	if strings.TrimSpace(c.IndexDir) == "" {
		c.IndexDir = filepath.Join(c.DataDir, "index")
	}
	if strings.TrimSpace(c.SessionsDB) == "" {
		c.SessionsDB = filepath.Join(c.IndexDir, "sessions.sqlite3")
	}
	if strings.TrimSpace(c.PlatformsPath) == "" {
		c.PlatformsPath = filepath.Join(c.DataDir, "platforms.json")
	}
	if strings.TrimSpace(c.ClaudeDir) == "" {
		c.ClaudeDir = filepath.Join(home, ".claude", "projects")
	}
	if strings.TrimSpace(c.CodexDir) == "" {
		c.CodexDir = filepath.Join(home, ".codex", "sessions")
	}
	if strings.TrimSpace(c.OpencodeDir) == "" {
		c.OpencodeDir = filepath.Join(home, ".local", "share", "opencode")
	}
	// Cursor has no stable cross-platform default; the adapter resolves the
	// OS-specific location when this stays empty.
	if strings.TrimSpace(c.ServerHost) == "" {
		c.ServerHost = DefaultServerHost
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		c.ServerPort = DefaultServerPort
	}
	if c.PollInterval <= 0 {
		if c.PollIntervalString != "" {
			if parsed, err := time.ParseDuration(c.PollIntervalString); err == nil {
				c.PollInterval = parsed
			}
		}
		if c.PollInterval <= 0 {
			c.PollInterval = defaultPollInterval
		}
	}
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = "openai"
	}
	if c.AgentTimeout <= 0 {
		if c.AgentTimeoutString != "" {
			if parsed, err := time.ParseDuration(c.AgentTimeoutString); err == nil {
				c.AgentTimeout = parsed
			}
		}
		if c.AgentTimeout <= 0 {
			c.AgentTimeout = defaultAgentTimeout
		}
	}
}

// PlatformRoot returns the configured storage root for a known platform
// name, empty when the platform has no configured or default root.
func (c Config) PlatformRoot(name string) string {
	switch name {
	case "claude":
		return c.ClaudeDir
	case "codex":
		return c.CodexDir
	case "opencode":
		return c.OpencodeDir
	case "cursor":
		return c.CursorDir
	default:
		return ""
	}
}

// PublicDict returns a serializable snapshot of the effective config with
// secrets elided, for the status command and dashboard config endpoint.
func (c Config) PublicDict() map[string]any {
	return map[string]any{
		"data_dir":       c.DataDir,
		"index_dir":      c.IndexDir,
		"sessions_db":    c.SessionsDB,
		"platforms_path": c.PlatformsPath,
		"claude_dir":     c.ClaudeDir,
		"codex_dir":      c.CodexDir,
		"opencode_dir":   c.OpencodeDir,
		"cursor_dir":     c.CursorDir,
		"server_host":    c.ServerHost,
		"server_port":    c.ServerPort,
		"poll_interval":  c.PollInterval.String(),
		"provider":       c.Provider,
		"model":          c.Model,
		"agent_timeout":  c.AgentTimeout.String(),
	}
}
