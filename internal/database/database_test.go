package database

import (
	"os"
	"strings"
	"testing"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	// t.Setenv registers the restore; the vars must be absent for the
	// envDefault values to apply.
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != "5432" {
		t.Fatalf("wrong host defaults: %+v", cfg)
	}
	if cfg.DBName != "campusevents" {
		t.Fatalf("DBName = %q, want campusevents", cfg.DBName)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "events_prod")
	t.Setenv("DB_SSLMODE", "require")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Host != "db.internal" || cfg.DBName != "events_prod" || cfg.SSLMode != "require" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{
		Host: "localhost", Port: "5432", User: "app", Password: "pw",
		DBName: "campusevents", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	for _, part := range []string{"host=localhost", "dbname=campusevents", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Fatalf("dsn %q missing %q", dsn, part)
		}
	}
}
