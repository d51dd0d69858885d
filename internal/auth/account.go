package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// Register validates and creates a regular user account.
func Register(ctx context.Context, db *sql.DB, email, name, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || password == "" {
		return nil, model.Invalid("email, password and name are required")
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := store.CreateUser(ctx, db, email, name, string(hash), model.RoleUser)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate checks an email and password pair. It returns a nil user and
// no error when the credentials do not match.
func Authenticate(ctx context.Context, db *sql.DB, email, password string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, db, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// ChangePassword verifies a user's current password and stores a new one.
func ChangePassword(ctx context.Context, db *sql.DB, userID int64, current, next string) error {
	if current == "" || next == "" {
		return model.Invalid("current and new password required")
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}

	user, err := store.GetUser(ctx, db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return model.Invalid("account not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return model.Invalid("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := store.UpdateUserPassword(ctx, db, userID, string(hash)); err != nil {
		return err
	}

	slog.Info("user changed own password", "user", userID)
	return nil
}
