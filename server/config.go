package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	internalstrings "github.com/boardroom-ai/boardroom/internal/strings"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 3001

const (
	defaultDatabasePath = "boardroom.db"
	defaultPollInterval = time.Second
	defaultRecentWindow = 5 * time.Second
)

// Duration is a time.Duration that unmarshals from toml strings like "1s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for toml decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config captures settings from boardroom.toml.
type Config struct {
	Server ServerConfig `toml:"server"`
	Worker WorkerConfig `toml:"worker"`
	Stream StreamConfig `toml:"stream"`
}

// ServerConfig holds listener and storage settings.
type ServerConfig struct {
	Port         int    `toml:"port"`
	DatabasePath string `toml:"database-path"`
	// CallbackURL overrides the derived worker callback base URL.
	CallbackURL string `toml:"callback-url"`
}

// WorkerConfig describes how to invoke the external debate worker.
type WorkerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Dir     string   `toml:"dir"`
}

// StreamConfig holds the live-update backstop settings. The poll interval and
// recent window are deliberately configuration, not constants: polling is the
// delivery guarantee behind best-effort console parsing.
type StreamConfig struct {
	PollInterval Duration `toml:"poll-interval"`
	RecentWindow Duration `toml:"recent-window"`
}

// LoadConfig reads settings from the given path. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg.withDefaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if internalstrings.IsBlank(c.Server.DatabasePath) {
		c.Server.DatabasePath = defaultDatabasePath
	}
	if c.Stream.PollInterval <= 0 {
		c.Stream.PollInterval = Duration(defaultPollInterval)
	}
	if c.Stream.RecentWindow <= 0 {
		c.Stream.RecentWindow = Duration(defaultRecentWindow)
	}
	return c
}

// ResolveAddr returns the listen address for the given override or config.
func ResolveAddr(cfg Config, addr string) (string, error) {
	if !internalstrings.IsBlank(addr) {
		return normalizeAddr(addr)
	}
	return fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port), nil
}

func normalizeAddr(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if strings.Contains(trimmed, ":") {
		return trimmed, nil
	}
	port, err := strconv.Atoi(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid port %q", trimmed)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("port out of range: %d", port)
	}
	return fmt.Sprintf("127.0.0.1:%d", port), nil
}

// resolveCallbackURL derives the base URL workers call back into.
func resolveCallbackURL(cfg Config, addr string) string {
	if !internalstrings.IsBlank(cfg.Server.CallbackURL) {
		return internalstrings.TrimTrailingSlash(cfg.Server.CallbackURL)
	}
	host := strings.TrimSpace(addr)
	if host == "" {
		host = fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	}
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	if strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1:" + strings.TrimPrefix(host, "0.0.0.0:")
	}
	return "http://" + host + "/api"
}
