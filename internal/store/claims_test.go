package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
)

// seedPending inserts a pending claim directly, bypassing the filing check
// that only lets claims be filed while the item is open.
func seedPending(t *testing.T, database *sql.DB, itemID, claimantID int64) int64 {
	t.Helper()
	res, err := database.Exec(
		`INSERT INTO claims (item_id, claimant_id, message, proof_description) VALUES (?, ?, 'mine', 'proof')`,
		itemID, claimantID,
	)
	if err != nil {
		t.Fatalf("seeding claim: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func claimCount(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&n); err != nil {
		t.Fatalf("counting claims: %v", err)
	}
	return n
}

func TestFileClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Wallet", model.ItemTypeFound)

	claim := mustClaim(t, database, item.ID, bo.ID)
	if claim.Status != model.ClaimStatusPending {
		t.Errorf("expected pending claim, got %q", claim.Status)
	}
	if claim.ItemTitle != "Wallet" || claim.ClaimantName != "bo" {
		t.Errorf("expected joined names, got %q %q", claim.ItemTitle, claim.ClaimantName)
	}
	if got := itemStatus(t, database, item.ID); got != model.ItemStatusClaimed {
		t.Errorf("expected item claimed, got %q", got)
	}
}

func TestFileClaimRejections(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	d := &model.ClaimDraft{Message: "mine", ProofDescription: "proof"}

	t.Run("own item", func(t *testing.T) {
		item := mustItem(t, database, ana.ID, "Own", model.ItemTypeFound)
		before := claimCount(t, database)
		if _, err := FileClaim(ctx, database, item.ID, ana.ID, d); !errors.Is(err, model.ErrOwnItem) {
			t.Errorf("expected ErrOwnItem, got %v", err)
		}
		if claimCount(t, database) != before {
			t.Error("expected no claim to be created")
		}
		if got := itemStatus(t, database, item.ID); got != model.ItemStatusOpen {
			t.Errorf("expected item to stay open, got %q", got)
		}
	})

	t.Run("resolved item", func(t *testing.T) {
		item := mustItem(t, database, ana.ID, "Resolved", model.ItemTypeFound)
		database.Exec(`UPDATE items SET status = 'resolved' WHERE id = ?`, item.ID)
		before := claimCount(t, database)
		if _, err := FileClaim(ctx, database, item.ID, bo.ID, d); !errors.Is(err, model.ErrItemNotOpen) {
			t.Errorf("expected ErrItemNotOpen, got %v", err)
		}
		if claimCount(t, database) != before {
			t.Error("expected claim count unchanged")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		item := mustItem(t, database, ana.ID, "Dup", model.ItemTypeFound)
		first := mustClaim(t, database, item.ID, bo.ID)
		// Reject the first claim so the item reopens and only uniqueness blocks.
		if _, err := ReviewClaim(ctx, database, first.ID, ana.ID, model.ClaimStatusRejected, ""); err != nil {
			t.Fatalf("ReviewClaim: %v", err)
		}
		if _, err := FileClaim(ctx, database, item.ID, bo.ID, d); !errors.Is(err, model.ErrDuplicateClaim) {
			t.Errorf("expected ErrDuplicateClaim, got %v", err)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		if _, err := FileClaim(ctx, database, 999, bo.ID, d); !errors.Is(err, model.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestApproveRejectsOtherPendingClaims(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)

	var claimants []*model.User
	for _, name := range []string{"bo", "cy", "di"} {
		claimants = append(claimants, mustUser(t, database, name, model.RoleUser))
	}
	winner := mustClaim(t, database, item.ID, claimants[0].ID)
	others := []int64{
		seedPending(t, database, item.ID, claimants[1].ID),
		seedPending(t, database, item.ID, claimants[2].ID),
	}

	approved, err := ReviewClaim(ctx, database, winner.ID, admin.ID, model.ClaimStatusApproved, "ID checked")
	if err != nil {
		t.Fatalf("ReviewClaim: %v", err)
	}
	if approved.Status != model.ClaimStatusApproved || approved.AdminNotes != "ID checked" {
		t.Errorf("unexpected approved claim %+v", approved)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != admin.ID || approved.ReviewedAt == nil {
		t.Error("expected reviewer and review time to be recorded")
	}

	for _, id := range others {
		c, _ := GetClaim(ctx, database, id)
		if c.Status != model.ClaimStatusRejected {
			t.Errorf("claim %d: expected rejected, got %q", id, c.Status)
		}
		if c.AdminNotes != model.SupersededNote {
			t.Errorf("claim %d: expected note %q, got %q", id, model.SupersededNote, c.AdminNotes)
		}
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusResolved {
		t.Errorf("expected item resolved, got %q", got.Status)
	}
	if got.ClaimedBy == nil || *got.ClaimedBy != claimants[0].ID {
		t.Errorf("expected claimed_by %d, got %v", claimants[0].ID, got.ClaimedBy)
	}
	if got.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}
}

func TestRejectOnlyPendingClaimReopensItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	claim := mustClaim(t, database, item.ID, bo.ID)

	if _, err := ReviewClaim(ctx, database, claim.ID, admin.ID, model.ClaimStatusRejected, "no proof"); err != nil {
		t.Fatalf("ReviewClaim: %v", err)
	}
	if got := claimStatus(t, database, claim.ID); got != model.ClaimStatusRejected {
		t.Errorf("expected claim rejected, got %q", got)
	}
	if got := itemStatus(t, database, item.ID); got != model.ItemStatusOpen {
		t.Errorf("expected item reopened, got %q", got)
	}
}

func TestRejectOneOfSeveralKeepsItemClaimed(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	cy := mustUser(t, database, "cy", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	first := mustClaim(t, database, item.ID, bo.ID)
	second := seedPending(t, database, item.ID, cy.ID)

	if _, err := ReviewClaim(ctx, database, first.ID, admin.ID, model.ClaimStatusRejected, ""); err != nil {
		t.Fatalf("ReviewClaim: %v", err)
	}
	if got := itemStatus(t, database, item.ID); got != model.ItemStatusClaimed {
		t.Errorf("expected item to stay claimed, got %q", got)
	}
	if got := claimStatus(t, database, second); got != model.ClaimStatusPending {
		t.Errorf("expected other claim to stay pending, got %q", got)
	}
}

func TestRedecideFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	claim := mustClaim(t, database, item.ID, bo.ID)

	if _, err := ReviewClaim(ctx, database, claim.ID, admin.ID, model.ClaimStatusApproved, ""); err != nil {
		t.Fatalf("ReviewClaim: %v", err)
	}
	for _, decision := range []string{model.ClaimStatusApproved, model.ClaimStatusRejected} {
		_, err := ReviewClaim(ctx, database, claim.ID, admin.ID, decision, "")
		if !errors.Is(err, model.ErrClaimReviewed) {
			t.Errorf("%s again: expected ErrClaimReviewed, got %v", decision, err)
		}
	}
	if got := claimStatus(t, database, claim.ID); got != model.ClaimStatusApproved {
		t.Errorf("expected claim to stay approved, got %q", got)
	}
	if got := itemStatus(t, database, item.ID); got != model.ItemStatusResolved {
		t.Errorf("expected item to stay resolved, got %q", got)
	}
}

func TestReviewClaimInvalid(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	claim := mustClaim(t, database, item.ID, bo.ID)

	if _, err := ReviewClaim(ctx, database, claim.ID, admin.ID, "pending", ""); !errors.Is(err, model.ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision, got %v", err)
	}
	if got := claimStatus(t, database, claim.ID); got != model.ClaimStatusPending {
		t.Errorf("expected claim to stay pending, got %q", got)
	}
	if _, err := ReviewClaim(ctx, database, 999, admin.ID, model.ClaimStatusApproved, ""); !errors.Is(err, model.ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestReviewClaimOnDeletedItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	claim := mustClaim(t, database, item.ID, bo.ID)

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	for _, decision := range []string{model.ClaimStatusApproved, model.ClaimStatusRejected} {
		_, err := ReviewClaim(ctx, database, claim.ID, admin.ID, decision, "")
		if !errors.Is(err, model.ErrItemNotFound) {
			t.Errorf("%s: expected ErrItemNotFound, got %v", decision, err)
		}
	}
	if got := claimStatus(t, database, claim.ID); got != model.ClaimStatusPending {
		t.Errorf("expected claim to stay pending, got %q", got)
	}
	if got := itemStatus(t, database, item.ID); got != model.ItemStatusClaimed {
		t.Errorf("expected deleted item to stay claimed, got %q", got)
	}
	history, err := ListItemHistory(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("ListItemHistory: %v", err)
	}
	for _, h := range history {
		if h.ToStatus == model.ItemStatusResolved {
			t.Errorf("unexpected resolve entry for deleted item: %+v", h)
		}
	}
}

func TestListClaims(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin)
	ana := mustUser(t, database, "ana", model.RoleUser)
	bo := mustUser(t, database, "bo", model.RoleUser)
	cy := mustUser(t, database, "cy", model.RoleUser)

	wallet := mustItem(t, database, ana.ID, "Wallet", model.ItemTypeFound)
	phone := mustItem(t, database, ana.ID, "Phone", model.ItemTypeFound)
	mustClaim(t, database, wallet.ID, bo.ID)
	c := mustClaim(t, database, phone.ID, cy.ID)
	ReviewClaim(ctx, database, c.ID, admin.ID, model.ClaimStatusRejected, "")

	tests := []struct {
		name   string
		filter ClaimFilter
		want   int
	}{
		{"all", ClaimFilter{}, 2},
		{"all status", ClaimFilter{Status: "all"}, 2},
		{"by claimant", ClaimFilter{ClaimantID: bo.ID}, 1},
		{"by item", ClaimFilter{ItemID: phone.ID}, 1},
		{"by status", ClaimFilter{Status: model.ClaimStatusPending}, 1},
		{"claimant and status", ClaimFilter{ClaimantID: cy.ID, Status: model.ClaimStatusPending}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ListClaims(ctx, database, tt.filter)
			if err != nil {
				t.Fatalf("ListClaims: %v", err)
			}
			if len(claims) != tt.want {
				t.Errorf("expected %d claims, got %d", tt.want, len(claims))
			}
		})
	}

	recent, err := RecentClaims(ctx, database, 1)
	if err != nil {
		t.Fatalf("RecentClaims: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != c.ID {
		t.Errorf("expected newest claim %d first, got %+v", c.ID, recent)
	}
	if recent[0].ReviewerName != "admin" {
		t.Errorf("expected reviewer name joined, got %q", recent[0].ReviewerName)
	}
}

func TestConcurrentFilingYieldsOneClaim(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "race.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.EnsureSchema(database); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	ctx := context.Background()
	ana := mustUser(t, database, "ana", model.RoleUser)
	item := mustItem(t, database, ana.ID, "Laptop", model.ItemTypeFound)

	const filers = 4
	var users []*model.User
	for _, name := range []string{"bo", "cy", "di", "ed"} {
		users = append(users, mustUser(t, database, name, model.RoleUser))
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, filers)
	for i := 0; i < filers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = FileClaim(ctx, database, item.ID, users[i].ID,
				&model.ClaimDraft{Message: "mine", ProofDescription: "proof"})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, model.ErrItemNotOpen):
		default:
			t.Errorf("unexpected filing error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one successful filing, got %d", succeeded)
	}
	if n := claimCount(t, database); n != 1 {
		t.Errorf("expected exactly one claim, got %d", n)
	}
}
