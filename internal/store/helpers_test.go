package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/erazemk/lostfound/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, name, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, fmt.Sprintf("%s@campus.edu", name), name, "hash", role)
	if err != nil {
		t.Fatalf("CreateUser %s: %v", name, err)
	}
	return u
}

func draft(title, itemType string) *model.ItemDraft {
	return &model.ItemDraft{
		Title:       title,
		Description: "Reported near the main entrance",
		Category:    "Electronics",
		Type:        itemType,
		Location:    "Library",
		Date:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ContactInfo: "desk@campus.edu",
	}
}

func mustItem(t *testing.T, database *sql.DB, reporter int64, title, itemType string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, draft(title, itemType), reporter)
	if err != nil {
		t.Fatalf("CreateItem %s: %v", title, err)
	}
	return item
}

func mustClaim(t *testing.T, database *sql.DB, itemID, claimantID int64) *model.Claim {
	t.Helper()
	c, err := FileClaim(context.Background(), database, itemID, claimantID,
		&model.ClaimDraft{Message: "It's mine", ProofDescription: "Sticker on the back"})
	if err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	return c
}

func itemStatus(t *testing.T, database *sql.DB, id int64) string {
	t.Helper()
	item, err := GetItem(context.Background(), database, id)
	if err != nil || item == nil {
		t.Fatalf("GetItem %d: %v", id, err)
	}
	return item.Status
}

func claimStatus(t *testing.T, database *sql.DB, id int64) string {
	t.Helper()
	c, err := GetClaim(context.Background(), database, id)
	if err != nil || c == nil {
		t.Fatalf("GetClaim %d: %v", id, err)
	}
	return c.Status
}
