package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

// GetStats counts non-deleted items, claims and users for the admin dashboard.
func GetStats(ctx context.Context, db *sql.DB) (*model.Stats, error) {
	s := &model.Stats{}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(type = 'lost'), 0), COALESCE(SUM(type = 'found'), 0),
		        COALESCE(SUM(status = 'open'), 0), COALESCE(SUM(status = 'claimed'), 0),
		        COALESCE(SUM(status = 'resolved'), 0)
		 FROM items WHERE deleted_at IS NULL`,
	).Scan(&s.Items.Total, &s.Items.Lost, &s.Items.Found, &s.Items.Open, &s.Items.Claimed, &s.Items.Resolved)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status = 'pending'), 0), COALESCE(SUM(status = 'approved'), 0),
		        COALESCE(SUM(status = 'rejected'), 0)
		 FROM claims`,
	).Scan(&s.Claims.Total, &s.Claims.Pending, &s.Claims.Approved, &s.Claims.Rejected)
	if err != nil {
		return nil, fmt.Errorf("counting claims: %w", err)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&s.Users.Total); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	return s, nil
}

// GetOverview returns the stats plus the n most recent items and claims.
func GetOverview(ctx context.Context, db *sql.DB, n int) (*model.Overview, error) {
	stats, err := GetStats(ctx, db)
	if err != nil {
		return nil, err
	}
	items, err := RecentItems(ctx, db, n)
	if err != nil {
		return nil, err
	}
	claims, err := RecentClaims(ctx, db, n)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	return &model.Overview{Stats: stats, RecentItems: items, RecentClaims: claims}, nil
}
