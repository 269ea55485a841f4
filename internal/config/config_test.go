package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
base_url = " https://cities.example.com/ "
theme = "Neon"
log_file = "/tmp/cities.log"
log_level = "DEBUG"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != "https://cities.example.com/" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}
	if cfg.Theme != "neon" {
		t.Fatalf("unexpected theme: %q", cfg.Theme)
	}
	if cfg.LogFile != "/tmp/cities.log" {
		t.Fatalf("unexpected log file: %q", cfg.LogFile)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `log_level = "warn"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}
	if cfg.Theme != DefaultTheme {
		t.Fatalf("unexpected theme: %q", cfg.Theme)
	}
	if cfg.LogFile != "" {
		t.Fatalf("unexpected log file: %q", cfg.LogFile)
	}
}

func TestLoadEmptyBaseURLKeepsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, `base_url = "  "`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}
}

func TestLoadRejectsUnknownTheme(t *testing.T) {
	if _, err := Load(writeConfig(t, `theme = "rainbow"`)); err == nil {
		t.Fatalf("expected theme error")
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	if _, err := Load(writeConfig(t, `colour = "red"`)); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadBadTOML(t *testing.T) {
	if _, err := Load(writeConfig(t, `base_url = `)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(BaseURLEnv, "")
	t.Setenv(PathEnv, "")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	envPath := writeConfig(t, `base_url = "http://from-env-file:1"`)
	t.Setenv(PathEnv, envPath)
	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.BaseURL != "http://from-env-file:1" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}

	flagPath := writeConfig(t, `base_url = "http://from-flag:2"`)
	cfg, err = Resolve(flagPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.BaseURL != "http://from-flag:2" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}

	t.Setenv(BaseURLEnv, "http://override:3")
	cfg, err = Resolve(flagPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.BaseURL != "http://override:3" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL)
	}
}

func TestResolveHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(BaseURLEnv, "")
	t.Setenv(PathEnv, "")
	if err := os.MkdirAll(filepath.Join(home, ".cities"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, ".cities", "config.toml"), []byte(`theme = "mono"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Theme != "mono" {
		t.Fatalf("unexpected theme: %q", cfg.Theme)
	}
}

func TestResolveMissingExplicitFile(t *testing.T) {
	t.Setenv(PathEnv, "")
	if _, err := Resolve(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
