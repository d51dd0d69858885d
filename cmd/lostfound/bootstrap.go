package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// bootstrapAdmin creates the first admin account when the database has none.
// It returns the generated password, or "" when an admin already exists.
func bootstrapAdmin(ctx context.Context, database *sql.DB, email, name string) (string, error) {
	admins, err := store.CountAdmins(ctx, database)
	if err != nil {
		return "", err
	}
	if admins > 0 {
		return "", nil
	}

	email = model.NormalizeEmail(email)
	if err := model.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("admin email: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	user, err := store.CreateUser(ctx, database, email, name, string(hash), model.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("admin account created", "user", user.ID, "email", user.Email)
	return password, nil
}

// printAdminCredentials prints the first-run admin login to stdout.
func printAdminCredentials(email, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
