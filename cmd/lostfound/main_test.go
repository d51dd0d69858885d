package main

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/lostfound/internal/config"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/store"
)

func TestBootstrapAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := bootstrapAdmin(ctx, database, "Admin@Campus.edu", "Administrator")
	if err != nil {
		t.Fatalf("bootstrapAdmin: %v", err)
	}
	if len(password) != 16 {
		t.Fatalf("expected 16 character password, got %q", password)
	}

	admin, err := store.GetUserByEmail(ctx, database, "admin@campus.edu")
	if err != nil || admin == nil {
		t.Fatalf("admin not created: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		t.Error("stored hash does not match the printed password")
	}

	again, err := bootstrapAdmin(ctx, database, "other@campus.edu", "Other")
	if err != nil {
		t.Fatalf("second bootstrapAdmin: %v", err)
	}
	if again != "" {
		t.Error("expected no new admin when one exists")
	}
}

func TestBootstrapAdminRejectsBadEmail(t *testing.T) {
	database := db.NewTestDB(t)
	if _, err := bootstrapAdmin(context.Background(), database, "not-an-email", "Admin"); err == nil {
		t.Error("expected an error for an invalid admin email")
	}
}

func TestParseFlags(t *testing.T) {
	cfg := &config.Config{DBPath: "lostfound.sqlite3", Addr: ":8080"}
	if err := parseFlags(cfg, []string{"-d", "test.db", "-addr", ":9090", "-e", "ops@campus.edu"}); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.DBPath != "test.db" || cfg.Addr != ":9090" || cfg.AdminEmail != "ops@campus.edu" {
		t.Errorf("flags not applied: %+v", cfg)
	}

	if err := parseFlags(cfg, []string{"extra"}); err == nil {
		t.Error("expected an error for a positional argument")
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(24)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	b, _ := generatePassword(24)
	if len(a) != 24 || a == b {
		t.Errorf("expected distinct 24 character passwords, got %q and %q", a, b)
	}
}
