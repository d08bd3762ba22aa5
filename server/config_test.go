package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.DatabasePath != "boardroom.db" {
		t.Errorf("database path = %q", cfg.Server.DatabasePath)
	}
	if time.Duration(cfg.Stream.PollInterval) != time.Second {
		t.Errorf("poll interval = %v, want 1s", time.Duration(cfg.Stream.PollInterval))
	}
	if time.Duration(cfg.Stream.RecentWindow) != 5*time.Second {
		t.Errorf("recent window = %v, want 5s", time.Duration(cfg.Stream.RecentWindow))
	}
}

func TestLoadConfig_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.toml")
	content := `
[server]
port = 4500
database-path = "state/debates.db"

[worker]
command = "python3"
args = ["main.py"]
dir = "/opt/debate-worker"

[stream]
poll-interval = "250ms"
recent-window = "2s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != 4500 {
		t.Errorf("port = %d, want 4500", cfg.Server.Port)
	}
	if cfg.Server.DatabasePath != "state/debates.db" {
		t.Errorf("database path = %q", cfg.Server.DatabasePath)
	}
	if cfg.Worker.Command != "python3" || len(cfg.Worker.Args) != 1 {
		t.Errorf("worker config = %+v", cfg.Worker)
	}
	if time.Duration(cfg.Stream.PollInterval) != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", time.Duration(cfg.Stream.PollInterval))
	}
}

func TestLoadConfig_RejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.toml")
	if err := os.WriteFile(path, []byte("[server\nport="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveAddr(t *testing.T) {
	cfg := Config{}.withDefaults()

	cases := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{"", "127.0.0.1:3001", false},
		{"9000", "127.0.0.1:9000", false},
		{"0.0.0.0:8080", "0.0.0.0:8080", false},
		{"localhost:8080", "localhost:8080", false},
		{"notaport", "", true},
		{"70000", "", true},
	}
	for _, tc := range cases {
		got, err := ResolveAddr(cfg, tc.addr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ResolveAddr(%q) expected error", tc.addr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveAddr(%q): %v", tc.addr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveAddr(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestResolveCallbackURL(t *testing.T) {
	cfg := Config{}.withDefaults()

	if got := resolveCallbackURL(cfg, "127.0.0.1:4500"); got != "http://127.0.0.1:4500/api" {
		t.Errorf("callback url = %q", got)
	}
	if got := resolveCallbackURL(cfg, "0.0.0.0:4500"); got != "http://127.0.0.1:4500/api" {
		t.Errorf("callback url for wildcard = %q", got)
	}
	if got := resolveCallbackURL(cfg, ""); got != "http://127.0.0.1:3001/api" {
		t.Errorf("default callback url = %q", got)
	}

	cfg.Server.CallbackURL = "https://debates.example.com/api/"
	if got := resolveCallbackURL(cfg, "127.0.0.1:4500"); got != "https://debates.example.com/api" {
		t.Errorf("override callback url = %q", got)
	}
}
