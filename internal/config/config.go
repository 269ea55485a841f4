// Package config loads the client settings from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultTheme   = "classic"

	PathEnv    = "CITIES_CONFIG"
	BaseURLEnv = "CITIES_API_URL"
)

type Config struct {
	BaseURL  string
	Theme    string
	LogFile  string
	LogLevel string
}

type fileConfig struct {
	BaseURL  string `toml:"base_url"`
	Theme    string `toml:"theme"`
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

func Default() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Theme:    DefaultTheme,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. Only keys present in the file override.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undec[0].String())
	}

	if meta.IsDefined("base_url") {
		if v := strings.TrimSpace(raw.BaseURL); v != "" {
			cfg.BaseURL = v
		}
	}
	if meta.IsDefined("theme") {
		cfg.Theme = strings.ToLower(strings.TrimSpace(raw.Theme))
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	switch cfg.Theme {
	case "classic", "neon", "mono":
	default:
		return Config{}, fmt.Errorf("load config: unknown theme %q", cfg.Theme)
	}
	return cfg, nil
}

// Resolve picks the config file: explicit path, then $CITIES_CONFIG, then
// ~/.cities/config.toml when it exists. Missing optional files yield defaults.
// The base URL is then overridden from $CITIES_API_URL.
func Resolve(explicit string) (Config, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(PathEnv))
	}

	var (
		cfg = Default()
		err error
	)
	switch {
	case path != "":
		cfg, err = Load(path)
		if err != nil {
			return Config{}, err
		}
	default:
		if p, ok := defaultPath(); ok {
			cfg, err = Load(p)
			if err != nil {
				return Config{}, err
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(BaseURLEnv)); v != "" {
		cfg.BaseURL = v
	}
	return cfg, nil
}

func defaultPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	p := filepath.Join(home, ".cities", "config.toml")
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return p, true
		}
		return "", false
	}
	return p, true
}
