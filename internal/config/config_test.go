package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DATABASE_URL", "AUTH_USER_HEADER", "ADMIN_USERS", "VOTE_TIMEOUT", "LOG_LEVEL", "RECONCILE_INTERVAL", "RECONCILE_AT", "RECONCILE_REPAIR"} {
		unsetenv(t, key)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "pollbooth.db" {
		t.Fatalf("expected default database, got %q", cfg.DatabaseURL)
	}
	if cfg.UserHeader != "X-Forwarded-User" {
		t.Fatalf("expected default user header, got %q", cfg.UserHeader)
	}
	if cfg.VoteTimeout != 5*time.Second {
		t.Fatalf("expected 5s vote timeout, got %v", cfg.VoteTimeout)
	}
	if cfg.ReconcileInterval != time.Hour || cfg.ReconcileRepair {
		t.Fatalf("unexpected reconcile defaults: %v %v", cfg.ReconcileInterval, cfg.ReconcileRepair)
	}
	if len(cfg.AdminUsers) != 0 {
		t.Fatalf("expected no admins, got %v", cfg.AdminUsers)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/polls")
	t.Setenv("ADMIN_USERS", " @Alice, bob ,,")
	t.Setenv("VOTE_TIMEOUT", "2s")
	t.Setenv("RECONCILE_REPAIR", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/polls" {
		t.Fatalf("unexpected database %q", cfg.DatabaseURL)
	}
	if strings.Join(cfg.AdminUsers, ",") != "alice,bob" {
		t.Fatalf("unexpected admins %v", cfg.AdminUsers)
	}
	if cfg.VoteTimeout != 2*time.Second || !cfg.ReconcileRepair {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v (%v)", level, err)
	}
}

func TestLoadDotenvFile(t *testing.T) {
	unsetenv(t, "HTTP_ADDR")
	t.Setenv("AUTH_USER_HEADER", "X-Remote-User")

	path := filepath.Join(t.TempDir(), ".env")
	content := "HTTP_ADDR=:9090\nAUTH_USER_HEADER=X-From-File\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.HTTPAddr)
	}
	if cfg.UserHeader != "X-Remote-User" {
		t.Fatalf("environment must win over file, got %q", cfg.UserHeader)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("VOTE_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"VOTE_TIMEOUT":       "-1s",
		"RECONCILE_INTERVAL": "-5m",
		"LOG_LEVEL":          "chatty",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminUsers: []string{"alice", "bob"}}
	for _, name := range []string{"alice", "@Alice", " BOB "} {
		if !cfg.IsAdmin(name) {
			t.Fatalf("expected %q to be admin", name)
		}
	}
	for _, name := range []string{"", "carol", "@"} {
		if cfg.IsAdmin(name) {
			t.Fatalf("expected %q not to be admin", name)
		}
	}
}
