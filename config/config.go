// Package config loads morsectl settings from TOML.
//
// Every key is optional; keys absent from the file keep their defaults.
//
//	transport = "serial"
//	interface = "wlan0"
//	interface_id = 0
//	timeout = "2s"
//	log_level = "debug"
//	output = "json"
//
//	[rate_limit]
//	per_second = 20
//	burst = 4
//
//	[serial]
//	port = "/dev/ttyUSB0"
//	baud = 921600
//
//	[remote]
//	url = "ws://192.168.1.1:8080/morse"
//
// A timeout of "0s" adds no per-command deadline and leaves each transport
// at its own exchange timeout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/moffa90/go-morsectl/transport"
)

// Defaults.
const (
	DefaultInterface = "wlan0"
	DefaultBaud      = 921600
	DefaultTimeout   = 5 * time.Second
	DefaultLogLevel  = "info"
	DefaultOutput    = "table"
)

// EnvFile names a config file used when no path is given.
const EnvFile = "MORSECTL_CONFIG"

// Config is the resolved morsectl configuration.
type Config struct {
	Transport   transport.Kind
	Interface   string
	InterfaceID uint16
	Timeout     time.Duration
	RateLimit   RateLimit
	Serial      Serial
	Remote      Remote
	LogLevel    string
	Output      string
}

// RateLimit paces sends. A zero PerSecond disables pacing.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// Enabled reports whether pacing is configured.
func (r RateLimit) Enabled() bool { return r.PerSecond > 0 }

// Serial selects the bridge port.
type Serial struct {
	Port string
	Baud int
}

// Remote selects the driver link.
type Remote struct {
	URL string
}

// Default returns the configuration used when no file is loaded.
func Default() Config {
	return Config{
		Transport: transport.KindLoopback,
		Interface: DefaultInterface,
		Timeout:   DefaultTimeout,
		RateLimit: RateLimit{Burst: 1},
		Serial:    Serial{Baud: DefaultBaud},
		LogLevel:  DefaultLogLevel,
		Output:    DefaultOutput,
	}
}

type fileConfig struct {
	Transport   string `toml:"transport"`
	Interface   string `toml:"interface"`
	InterfaceID int64  `toml:"interface_id"`
	Timeout     string `toml:"timeout"`
	LogLevel    string `toml:"log_level"`
	Output      string `toml:"output"`

	RateLimit struct {
		PerSecond float64 `toml:"per_second"`
		Burst     int     `toml:"burst"`
	} `toml:"rate_limit"`

	Serial struct {
		Port string `toml:"port"`
		Baud int    `toml:"baud"`
	} `toml:"serial"`

	Remote struct {
		URL string `toml:"url"`
	} `toml:"remote"`
}

// Load reads path over the defaults. An empty path falls back to EnvFile
// and then to the defaults alone.
func Load(path string) (Config, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvFile))
	}
	if path == "" {
		return Default(), nil
	}
	cfg, err := decode(path)
	if err != nil {
		return Config{}, fmt.Errorf("load morsectl config: %w", err)
	}
	return cfg, nil
}

func decode(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(filepath.Clean(path), &raw)
	if err != nil {
		return Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("transport") {
		kind, err := ParseTransport(raw.Transport)
		if err != nil {
			return Config{}, err
		}
		cfg.Transport = kind
	}

	if meta.IsDefined("interface") {
		if iface := strings.TrimSpace(raw.Interface); iface != "" {
			cfg.Interface = iface
		}
	}

	if meta.IsDefined("interface_id") {
		if raw.InterfaceID < 0 || raw.InterfaceID > 0xFFFF {
			return Config{}, fmt.Errorf("interface_id %d out of range", raw.InterfaceID)
		}
		cfg.InterfaceID = uint16(raw.InterfaceID)
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		if d < 0 {
			return Config{}, errors.New("timeout must not be negative")
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(raw.Output))
	}

	if meta.IsDefined("rate_limit", "per_second") {
		if raw.RateLimit.PerSecond < 0 {
			return Config{}, errors.New("rate_limit.per_second must not be negative")
		}
		cfg.RateLimit.PerSecond = raw.RateLimit.PerSecond
	}

	if meta.IsDefined("rate_limit", "burst") {
		if raw.RateLimit.Burst < 1 {
			return Config{}, errors.New("rate_limit.burst must be at least 1")
		}
		cfg.RateLimit.Burst = raw.RateLimit.Burst
	}

	if meta.IsDefined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}

	if meta.IsDefined("serial", "baud") {
		if raw.Serial.Baud <= 0 {
			return Config{}, fmt.Errorf("serial.baud %d must be positive", raw.Serial.Baud)
		}
		cfg.Serial.Baud = raw.Serial.Baud
	}

	if meta.IsDefined("remote", "url") {
		cfg.Remote.URL = strings.TrimSpace(raw.Remote.URL)
	}

	return cfg, nil
}

// ParseTransport converts a transport name.
func ParseTransport(name string) (transport.Kind, error) {
	switch kind := transport.Kind(strings.ToLower(strings.TrimSpace(name))); kind {
	case transport.KindLoopback, transport.KindSerial, transport.KindRemote:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want loopback, serial or remote)", name)
	}
}

// Validate checks that the selected transport has what it needs.
func (c Config) Validate() error {
	switch c.Transport {
	case transport.KindSerial:
		if c.Serial.Port == "" {
			return errors.New("serial transport needs serial.port")
		}
	case transport.KindRemote:
		if c.Remote.URL == "" {
			return errors.New("remote transport needs remote.url")
		}
	case transport.KindLoopback:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}
