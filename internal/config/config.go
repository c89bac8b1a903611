// Package config loads agentboard's TOML configuration.
//
// Resolution order (later overrides earlier):
//  1. Built-in defaults (embedded in binary)
//  2. The config file (DefaultConfigPath, or --config / AGENTBOARD_CONFIG)
//  3. AGENTBOARD_* environment variables
//
// The file only needs the keys the user wants to change.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/agentboard/agentboard/internal/util"
)

//go:embed defaults.toml
var defaultsTOML string

// Config is the full agentboard configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Connection ConnectionConfig `toml:"connection"`
	Activity   ActivityConfig   `toml:"activity"`
	Journal    JournalConfig    `toml:"journal"`
	UI         UIConfig         `toml:"ui"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig identifies the event stream.
type ServerConfig struct {
	URL        string   `toml:"url"`
	ClientName string   `toml:"client_name"`
	Topics     []string `toml:"topics"`

	// Token is sent as a bearer token on the WebSocket upgrade.
	Token string `toml:"token,omitempty"`
}

// ConnectionConfig tunes heartbeat and reconnect behaviour.
type ConnectionConfig struct {
	HeartbeatInterval Duration `toml:"heartbeat_interval"`
	ReconnectDelay    Duration `toml:"reconnect_delay"`

	// MaxReconnectAttempts of zero or less disables reconnecting.
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
	DialTimeout          Duration `toml:"dial_timeout"`
}

// ActivityConfig bounds the activity log.
type ActivityConfig struct {
	MaxItems     int `toml:"max_items"`
	MaxProcessed int `toml:"max_processed"`
}

// JournalConfig controls the on-disk event journal and checkpoint.
// Empty paths resolve to DefaultJournalPath and DefaultCheckpointPath.
type JournalConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path,omitempty"`
	CheckpointPath string `toml:"checkpoint_path,omitempty"`
}

// UIConfig holds CLI presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`

	// Project restricts board output to one project id.
	Project string `toml:"project,omitempty"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a wrapper for time.Duration that supports TOML marshaling.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if _, err := toml.Decode(defaultsTOML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the config file at path over the defaults. A missing file is
// not an error. Unknown keys are, so typos do not pass silently.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv overlays AGENTBOARD_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AGENTBOARD_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("AGENTBOARD_CLIENT_NAME"); v != "" {
		c.Server.ClientName = v
	}
	if v := os.Getenv("AGENTBOARD_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("AGENTBOARD_THEME"); v != "" {
		c.UI.Theme = v
	}
	switch os.Getenv("AGENTBOARD_JOURNAL") {
	case "1", "true", "on":
		c.Journal.Enabled = true
	case "0", "false", "off":
		c.Journal.Enabled = false
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("server.url: unsupported scheme %q (want ws or wss)", u.Scheme)
	}
	if c.Server.ClientName == "" {
		return errors.New("server.client_name is required")
	}
	if c.Connection.HeartbeatInterval.Duration <= 0 {
		return errors.New("connection.heartbeat_interval must be positive")
	}
	if c.Connection.ReconnectDelay.Duration < 0 {
		return errors.New("connection.reconnect_delay must not be negative")
	}
	if c.Activity.MaxItems < 0 || c.Activity.MaxProcessed < 0 {
		return errors.New("activity limits must not be negative")
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// SlogLevel returns the configured level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// JournalPath returns the journal file, resolving the default.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return DefaultJournalPath()
}

// CheckpointPath returns the checkpoint file, resolving the default.
func (c *Config) CheckpointPath() string {
	if c.Journal.CheckpointPath != "" {
		return c.Journal.CheckpointPath
	}
	return DefaultCheckpointPath()
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the config to path atomically.
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0644)
}
