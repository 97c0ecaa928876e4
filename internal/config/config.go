// Package config owns node configuration for host and guest binaries.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ChannelConfig declares one logical channel a node opens at startup.
type ChannelConfig struct {
	ID           string `toml:"id"`
	OriginFilter string `toml:"origin_filter"`
	CallTimeout  string `toml:"call_timeout"`
}

// HostConfig configures a host-mode node: the admin/bridge HTTP server and
// the channels it serves.
type HostConfig struct {
	Name           string          `toml:"name"`
	Addr           string          `toml:"addr"`
	CorsOrigins    []string        `toml:"cors_origins"`
	AllowedOrigins []string        `toml:"allowed_origins"`
	Channels       []ChannelConfig `toml:"channels"`
}

// GuestConfig configures a guest-mode node: where to dial the host and
// which channels to open.
type GuestConfig struct {
	Name     string          `toml:"name"`
	HostURL  string          `toml:"host_url"`
	Origin   string          `toml:"origin"`
	Channels []ChannelConfig `toml:"channels"`
}

func LoadHostConfig(path string) (HostConfig, error) {
	var cfg HostConfig
	if err := loadToml(path, &cfg); err != nil {
		return HostConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "framectl-host"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9400"
	}
	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

func LoadGuestConfig(path string) (GuestConfig, error) {
	var cfg GuestConfig
	if err := loadToml(path, &cfg); err != nil {
		return GuestConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "framectl-guest"
	}
	if err := ValidateGuestConfig(cfg); err != nil {
		return GuestConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("host config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("host config missing addr")
	}
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("host config declares no channels")
	}
	for i, ch := range cfg.Channels {
		if err := ValidateChannelEntry(ch); err != nil {
			return fmt.Errorf("channel[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateGuestConfig(cfg GuestConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("guest config missing name")
	}
	if strings.TrimSpace(cfg.HostURL) == "" {
		return fmt.Errorf("guest config missing host_url")
	}
	if !strings.HasPrefix(cfg.HostURL, "ws://") && !strings.HasPrefix(cfg.HostURL, "wss://") {
		return fmt.Errorf("guest config host_url must be a ws:// or wss:// URL")
	}
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("guest config declares no channels")
	}
	for i, ch := range cfg.Channels {
		if err := ValidateChannelEntry(ch); err != nil {
			return fmt.Errorf("channel[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateChannelEntry(cfg ChannelConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if cfg.CallTimeout != "" {
		d, err := time.ParseDuration(cfg.CallTimeout)
		if err != nil {
			return fmt.Errorf("call_timeout invalid: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("call_timeout must be positive")
		}
	}
	return nil
}

// CallTimeoutDuration parses the channel's call timeout; zero means the
// bridge default applies.
func (c ChannelConfig) CallTimeoutDuration() time.Duration {
	if c.CallTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 0
	}
	return d
}
