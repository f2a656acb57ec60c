package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "soon")
	if got := GetDuration("TEST_TIMEOUT", 3*time.Second); got != 3*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	t.Setenv("TEST_TIMEOUT", "250ms")
	if got := GetDuration("TEST_TIMEOUT", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", got)
	}
}

func TestLoadAPIConfigClampsPageSizes(t *testing.T) {
	t.Setenv("PAGE_SIZE_DEFAULT", "50")
	t.Setenv("PAGE_SIZE_MAX", "10")
	t.Setenv("STORE_DRIVER", "MEMORY")
	cfg := LoadAPIConfig()
	if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 50 {
		t.Fatalf("unexpected page sizes: default=%d max=%d", cfg.DefaultPageSize, cfg.MaxPageSize)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StoreDriver)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_FRESH=loaded\nDOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_FRESH") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("DOTENV_FRESH"); got != "loaded" {
		t.Fatalf("expected loaded, got %q", got)
	}
	if got := os.Getenv("DOTENV_SET"); got != "from-env" {
		t.Fatalf("existing value overridden: %q", got)
	}
}
