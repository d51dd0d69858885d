package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/workflow"
)

const claimSelect = `SELECT c.id, c.item_id, c.claimant_id, c.status, c.message, c.proof_description,
        c.admin_notes, c.reviewed_by, c.reviewed_at, c.created_at, c.updated_at,
        i.title, i.type, i.status, u.name, u.email, COALESCE(r.name, '')
 FROM claims c
 JOIN items i ON i.id = c.item_id
 JOIN users u ON u.id = c.claimant_id
 LEFT JOIN users r ON r.id = c.reviewed_by`

func scanClaim(row interface{ Scan(...any) error }) (*model.Claim, error) {
	c := &model.Claim{}
	var notes sql.NullString
	err := row.Scan(&c.ID, &c.ItemID, &c.ClaimantID, &c.Status, &c.Message, &c.ProofDescription,
		&notes, &c.ReviewedBy, &c.ReviewedAt, &c.CreatedAt, &c.UpdatedAt,
		&c.ItemTitle, &c.ItemType, &c.ItemStatus, &c.ClaimantName, &c.ClaimantEmail, &c.ReviewerName)
	if err != nil {
		return nil, err
	}
	c.AdminNotes = notes.String
	return c, nil
}

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// FileClaim records a pending claim by claimantID on an item and moves the
// item to claimed. Both writes happen in one transaction; the item update is
// conditional on the item still being open, so of two concurrent filings on
// the same item exactly one succeeds.
func FileClaim(ctx context.Context, db *sql.DB, itemID, claimantID int64, d *model.ClaimDraft) (_ *model.Claim, err error) {
	ctx, span := tracer.Start(ctx, "store.FileClaim", trace.WithAttributes(
		attribute.Int64("item.id", itemID),
		attribute.Int64("claimant.id", claimantID),
	))
	defer func() { endSpan(span, err) }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim filing: %w", err)
	}
	defer tx.Rollback()

	var status string
	var reportedBy int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, reported_by FROM items WHERE id = ? AND deleted_at IS NULL`, itemID,
	).Scan(&status, &reportedBy)
	if err == sql.ErrNoRows {
		return nil, model.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading item: %w", err)
	}

	var already bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM claims WHERE item_id = ? AND claimant_id = ?)`, itemID, claimantID,
	).Scan(&already)
	if err != nil {
		return nil, fmt.Errorf("checking existing claim: %w", err)
	}

	if err := workflow.CheckFiling(workflow.Filing{
		ItemStatus:     status,
		ReportedBy:     reportedBy,
		ClaimantID:     claimantID,
		AlreadyClaimed: already,
	}); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO claims (item_id, claimant_id, message, proof_description) VALUES (?, ?, ?, ?)`,
		itemID, claimantID, d.Message, d.ProofDescription,
	)
	if isUniqueViolation(err) {
		return nil, model.ErrDuplicateClaim
	}
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.ItemStatusClaimed, itemID, model.ItemStatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("marking item claimed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, model.ErrItemNotOpen
	}
	if err := recordStatusChange(ctx, tx, itemID, model.ItemStatusOpen, model.ItemStatusClaimed,
		claimantID, fmt.Sprintf("claim #%d filed", id)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim filing: %w", err)
	}
	span.SetAttributes(attribute.Int64("claim.id", id))

	return GetClaim(ctx, db, id)
}

// ReviewClaim applies an admin decision to a pending claim together with its
// effect on the item and the item's other pending claims, in one transaction.
func ReviewClaim(ctx context.Context, db *sql.DB, claimID, reviewerID int64, decision, notes string) (_ *model.Claim, err error) {
	ctx, span := tracer.Start(ctx, "store.ReviewClaim", trace.WithAttributes(
		attribute.Int64("claim.id", claimID),
		attribute.Int64("reviewer.id", reviewerID),
		attribute.String("claim.decision", decision),
	))
	defer func() { endSpan(span, err) }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim review: %w", err)
	}
	defer tx.Rollback()

	var itemID, claimantID int64
	var status string
	var itemDeleted bool
	err = tx.QueryRowContext(ctx,
		`SELECT c.item_id, c.claimant_id, c.status, i.deleted_at IS NOT NULL
		 FROM claims c JOIN items i ON i.id = c.item_id
		 WHERE c.id = ?`, claimID,
	).Scan(&itemID, &claimantID, &status, &itemDeleted)
	if err == sql.ErrNoRows {
		return nil, model.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading claim: %w", err)
	}
	span.SetAttributes(attribute.Int64("item.id", itemID))
	if itemDeleted {
		return nil, model.ErrItemNotFound
	}

	others, err := countPending(ctx, tx, itemID, claimID)
	if err != nil {
		return nil, err
	}

	out, err := workflow.Decide(workflow.Review{
		Decision:     decision,
		ClaimStatus:  status,
		OtherPending: others,
	})
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ?, admin_notes = ?, reviewed_by = ?, reviewed_at = CURRENT_TIMESTAMP,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		out.ClaimStatus, nullString(strings.TrimSpace(notes)), reviewerID, claimID, model.ClaimStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("updating claim: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, model.ErrClaimReviewed
	}

	switch out.ItemStatus {
	case model.ItemStatusResolved:
		result, err := tx.ExecContext(ctx,
			`UPDATE items SET status = ?, claimed_by = ?, resolved_at = CURRENT_TIMESTAMP,
			        updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
			model.ItemStatusResolved, claimantID, itemID, model.ItemStatusClaimed,
		)
		if err != nil {
			return nil, fmt.Errorf("resolving item: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, model.ErrItemNotClaimed
		}
		if err := recordStatusChange(ctx, tx, itemID, model.ItemStatusClaimed, model.ItemStatusResolved,
			reviewerID, fmt.Sprintf("claim #%d approved", claimID)); err != nil {
			return nil, err
		}
	case model.ItemStatusOpen:
		result, err := tx.ExecContext(ctx,
			`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ? AND deleted_at IS NULL
			   AND NOT EXISTS (SELECT 1 FROM claims WHERE item_id = ? AND status = ?)`,
			model.ItemStatusOpen, itemID, model.ItemStatusClaimed, itemID, model.ClaimStatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("reopening item: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			if err := recordStatusChange(ctx, tx, itemID, model.ItemStatusClaimed, model.ItemStatusOpen,
				reviewerID, fmt.Sprintf("claim #%d rejected", claimID)); err != nil {
				return nil, err
			}
		}
	}

	if out.RejectOthers {
		_, err := tx.ExecContext(ctx,
			`UPDATE claims SET status = ?, admin_notes = ?, reviewed_by = ?, reviewed_at = CURRENT_TIMESTAMP,
			        updated_at = CURRENT_TIMESTAMP
			 WHERE item_id = ? AND id != ? AND status = ?`,
			model.ClaimStatusRejected, out.OthersNote, reviewerID, itemID, claimID, model.ClaimStatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("rejecting competing claims: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim review: %w", err)
	}

	return GetClaim(ctx, db, claimID)
}

// GetClaim returns a claim by ID with item and user names joined.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx, claimSelect+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// ClaimFilter narrows ListClaims. Zero values mean "no filter".
type ClaimFilter struct {
	ClaimantID int64
	ItemID     int64
	Status     string
}

// ListClaims returns claims matching f, newest first.
func ListClaims(ctx context.Context, db *sql.DB, f ClaimFilter) ([]model.Claim, error) {
	var where []string
	var args []any
	if f.ClaimantID > 0 {
		where = append(where, "c.claimant_id = ?")
		args = append(args, f.ClaimantID)
	}
	if f.ItemID > 0 {
		where = append(where, "c.item_id = ?")
		args = append(args, f.ItemID)
	}
	if f.Status != "" && f.Status != "all" {
		where = append(where, "c.status = ?")
		args = append(args, f.Status)
	}

	query := claimSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	return queryClaims(ctx, db, query, args...)
}

// RecentClaims returns the most recently filed claims.
func RecentClaims(ctx context.Context, db *sql.DB, limit int) ([]model.Claim, error) {
	return queryClaims(ctx, db, claimSelect+` ORDER BY c.created_at DESC, c.id DESC LIMIT ?`, limit)
}

func queryClaims(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
