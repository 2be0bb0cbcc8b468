package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		"PORT", "CFGBIND_SOURCE", "CFGBIND_LAYERED", "CFGBIND_ENV_PREFIX",
		"CFGBIND_WATCH", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(name, "")
	}
}

func writeSettings(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	source := "endpoint.yaml"

	cfg, err := Load(&CLIOverrides{Source: &source})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.EnvPrefix != defaultEnvPrefix || cfg.LogLevel != defaultLogLevel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.RateLimitRPS != defaultRateLimitRPS || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg)
	}
}

func TestLoadRequiresSource(t *testing.T) {
	clearEnv(t)

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error without a source")
	}

	layered := true
	if _, err := Load(&CLIOverrides{Layered: &layered}); err != nil {
		t.Fatalf("layered mode without a file should be valid, got %v", err)
	}

	watch := true
	if _, err := Load(&CLIOverrides{Layered: &layered, Watch: &watch}); err == nil {
		t.Fatalf("expected error when watching without a file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CFGBIND_SOURCE", "/etc/endpoint.yaml")
	t.Setenv("CFGBIND_WATCH", "true")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" || cfg.Source != "/etc/endpoint.yaml" || !cfg.Watch {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if cfg.RateLimitBurst != 5 {
		t.Fatalf("expected burst 5, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadRejectsInvalidEnvBoolean(t *testing.T) {
	clearEnv(t)
	t.Setenv("CFGBIND_SOURCE", "endpoint.yaml")
	t.Setenv("CFGBIND_LAYERED", "maybe")

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for invalid boolean")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CFGBIND_SOURCE", "from-env.yaml")

	path := writeSettings(t, `
port: "7100"
source: from-file.yaml
log_level: debug
enable_request_logging: false
write_timeout: 2s
rate_limit:
  rps: 0
`)

	port := "7200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port, got %s", cfg.Port)
	}
	if cfg.Source != "from-file.yaml" || cfg.LogLevel != "debug" {
		t.Fatalf("expected YAML to override env, got %+v", cfg)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled by YAML")
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Fatalf("expected write timeout 2s, got %s", cfg.WriteTimeout)
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("unexpected rate limit: rps=%v burst=%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)

	testCases := map[string]string{
		"bad duration": "source: a.yaml\nidle_timeout: forever\n",
		"bad yaml":     "source: [a.yaml\n",
	}
	for name, doc := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeSettings(t, doc)
			if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing settings file")
	}
}

func TestValidateConfigRejectsLogLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Source = "a.yaml"
	cfg.LogLevel = "loud"

	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for invalid log level")
	}
}
