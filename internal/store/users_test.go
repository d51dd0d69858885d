package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "ana@campus.edu", "Ana", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "ana@campus.edu" || user.Name != "Ana" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.PasswordHash != "hash123" {
		t.Errorf("expected stored hash, got %q", got.PasswordHash)
	}

	missing, err := GetUser(ctx, database, 999)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice@campus.edu", "Alice", "hash", model.RoleAdmin)

	user, err := GetUserByEmail(ctx, database, "alice@campus.edu")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil || user.Name != "Alice" {
		t.Fatalf("expected Alice, got %+v", user)
	}

	missing, err := GetUserByEmail(ctx, database, "bob@campus.edu")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "dup@campus.edu", "A", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := CreateUser(ctx, database, "dup@campus.edu", "B", "hash", model.RoleUser)
	if !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pw@campus.edu", "Pw", "oldhash", model.RoleUser)
	if err := UpdateUserPassword(ctx, database, user.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestCountAdmins(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, _ := CountAdmins(ctx, database)
	if n != 0 {
		t.Fatalf("expected 0 admins, got %d", n)
	}

	CreateUser(ctx, database, "admin@campus.edu", "Admin", "hash", model.RoleAdmin)
	CreateUser(ctx, database, "user@campus.edu", "User", "hash", model.RoleUser)

	n, err := CountAdmins(ctx, database)
	if err != nil {
		t.Fatalf("CountAdmins: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 admin, got %d", n)
	}
}
