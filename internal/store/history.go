package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// recordStatusChange appends an entry to an item's status history. It runs
// inside the transaction that changed the status.
func recordStatusChange(ctx context.Context, tx execer, itemID int64, from, to string, changedBy int64, note string) error {
	var by any
	if changedBy > 0 {
		by = changedBy
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO item_history (item_id, from_status, to_status, changed_by, note) VALUES (?, ?, ?, ?, ?)`,
		itemID, nullString(from), to, by, nullString(note),
	)
	if err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}
	return nil
}

// ListItemHistory returns an item's status history, oldest first.
func ListItemHistory(ctx context.Context, db *sql.DB, itemID int64) ([]model.StatusChange, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT h.id, h.item_id, h.from_status, h.to_status, h.changed_by, h.note, h.changed_at,
		        COALESCE(u.name, '')
		 FROM item_history h
		 LEFT JOIN users u ON u.id = h.changed_by
		 WHERE h.item_id = ?
		 ORDER BY h.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusChange
	for rows.Next() {
		var h model.StatusChange
		var from, note sql.NullString
		if err := rows.Scan(&h.ID, &h.ItemID, &from, &h.ToStatus, &h.ChangedBy, &note, &h.ChangedAt,
			&h.ChangedByName); err != nil {
			return nil, fmt.Errorf("scanning status change: %w", err)
		}
		h.FromStatus = from.String
		h.Note = note.String
		history = append(history, h)
	}
	return history, rows.Err()
}
