package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.Int("port", 8080, "")
	fs.String("mode", "release", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" || cfg.SendBuffer != 256 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second || cfg.PongWait() != 60*time.Second {
		t.Errorf("ping %s pong %s", cfg.PingPeriod, cfg.PongWait())
	}
	ice := cfg.WebRTC().ICEServers
	if len(ice) != 1 || ice[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ice servers = %+v", ice)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "relay.yaml")
	yaml := `mode: debug
port: 7000
rate_limit: 5
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: u
    credential: p
`
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file", func(t *testing.T) {
		fs := flagSet()
		_ = fs.Set("config", file)
		cfg, err := Load(fs)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != 7000 || cfg.Mode != "debug" || cfg.RateLimit != 5 {
			t.Errorf("cfg = %+v", cfg)
		}
		ice := cfg.WebRTC().ICEServers
		if len(ice) != 1 || ice[0].Username != "u" || ice[0].Credential != "p" {
			t.Errorf("ice = %+v", ice)
		}
	})

	t.Run("PORT env beats file", func(t *testing.T) {
		t.Setenv("PORT", "3001")
		fs := flagSet()
		_ = fs.Set("config", file)
		cfg, err := Load(fs)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != 3001 {
			t.Errorf("port = %d, want 3001", cfg.Port)
		}
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("PORT", "3001")
		fs := flagSet()
		_ = fs.Set("config", file)
		_ = fs.Set("port", "3002")
		cfg, err := Load(fs)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Port != 3002 {
			t.Errorf("port = %d, want 3002", cfg.Port)
		}
	})
}

func TestValidate(t *testing.T) {
	base := Config{Port: 8080, PingPeriod: time.Second, SendBuffer: 1, AllowedOrigins: []string{"*"}}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"zero ping", func(c *Config) { c.PingPeriod = 0 }, true},
		{"zero buffer", func(c *Config) { c.SendBuffer = 0 }, true},
		{"origin without scheme", func(c *Config) { c.AllowedOrigins = []string{"example.org"} }, true},
		{"explicit origin", func(c *Config) { c.AllowedOrigins = []string{"https://example.org"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
