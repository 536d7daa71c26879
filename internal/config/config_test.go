package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
[server]
name = "testbancho"
bind_address = "127.0.0.1:9000"

[session]
timeout = "90s"
queue_size = 128

[login]
retry_max = 3
disallowed_ips = ["203.0.113.7"]

[messages]
max_length = 500
sensitive_words = ["bad"]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Name != "testbancho" || cfg.Server.BindAddress != "127.0.0.1:9000" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Session.Timeout != 90*time.Second || cfg.Session.QueueSize != 128 {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Login.RetryMax != 3 || len(cfg.Login.DisallowedIPs) != 1 {
		t.Fatalf("login = %+v", cfg.Login)
	}
	if cfg.Messages.MaxLength != 500 || cfg.Messages.SensitiveWords[0] != "bad" {
		t.Fatalf("messages = %+v", cfg.Messages)
	}

	// Absent keys keep their defaults.
	if !cfg.Login.Enabled {
		t.Fatalf("login.enabled default lost")
	}
	if cfg.Session.RecycleInterval != 180*time.Second {
		t.Fatalf("recycle interval default lost: %v", cfg.Session.RecycleInterval)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatalf("start time not stamped")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("missing config accepted")
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	os.WriteFile(path, []byte("[server\nname ="), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed config accepted")
	}
}
