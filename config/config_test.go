package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moffa90/go-morsectl/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "morsectl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvFile, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport != transport.KindLoopback {
		t.Errorf("transport = %q", cfg.Transport)
	}
	if cfg.Interface != DefaultInterface || cfg.Timeout != DefaultTimeout {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit.Enabled() {
		t.Error("rate limit enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
transport = " Serial "
interface = "wlan1"
interface_id = 3
timeout = "250ms"
log_level = "debug"
output = "YAML"

[rate_limit]
per_second = 20
burst = 4

[serial]
port = "/dev/ttyUSB1"

[remote]
url = "ws://10.0.0.1:8080/morse"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport != transport.KindSerial {
		t.Errorf("transport = %q", cfg.Transport)
	}
	if cfg.Interface != "wlan1" || cfg.InterfaceID != 3 {
		t.Errorf("interface = %q id %d", cfg.Interface, cfg.InterfaceID)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.Output != "yaml" {
		t.Errorf("log level %q output %q", cfg.LogLevel, cfg.Output)
	}
	if cfg.RateLimit.PerSecond != 20 || cfg.RateLimit.Burst != 4 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" || cfg.Serial.Baud != DefaultBaud {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Remote.URL != "ws://10.0.0.1:8080/morse" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `interface = "mesh0"`)
	t.Setenv(EnvFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interface != "mesh0" {
		t.Errorf("interface = %q", cfg.Interface)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"transport", `transport = "usb"`, "unknown transport"},
		{"timeout", `timeout = "soon"`, "parse timeout"},
		{"negative timeout", `timeout = "-1s"`, "must not be negative"},
		{"interface id", `interface_id = 70000`, "out of range"},
		{"burst", "[rate_limit]\nburst = 0", "burst must be at least 1"},
		{"baud", "[serial]\nbaud = 0", "must be positive"},
		{"unknown key", `colour = "blue"`, "unknown key"},
		{"syntax", `transport = `, "load morsectl config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !strings.Contains(err.Error(), "load morsectl config") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"loopback", func(c *Config) {}, ""},
		{"serial without port", func(c *Config) { c.Transport = transport.KindSerial }, "serial.port"},
		{"remote without url", func(c *Config) { c.Transport = transport.KindRemote }, "remote.url"},
		{"unknown", func(c *Config) { c.Transport = "usb" }, "unknown transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
