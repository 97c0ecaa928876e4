package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultHostConfig is the template emitted for new host nodes.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Name:           "framectl-host",
		Addr:           ":9400",
		CorsOrigins:    []string{"http://localhost:3000"},
		AllowedOrigins: []string{"http://localhost:3000"},
		Channels: []ChannelConfig{
			{
				ID:           "app.main",
				OriginFilter: "http://localhost:3000",
				CallTimeout:  "15s",
			},
		},
	}
}

// DefaultGuestConfig is the template emitted for new guest nodes.
func DefaultGuestConfig() GuestConfig {
	return GuestConfig{
		Name:    "framectl-guest",
		HostURL: "ws://localhost:9400/bridge",
		Origin:  "http://localhost:3000",
		Channels: []ChannelConfig{
			{ID: "app.main", CallTimeout: "15s"},
		},
	}
}

// Template renders a default config of the given kind as TOML.
func Template(kind string) (string, error) {
	var v any
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		v = DefaultHostConfig()
	case "guest":
		v = DefaultGuestConfig()
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
