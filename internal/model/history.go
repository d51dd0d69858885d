package model

import "time"

// StatusChange is one entry in an item's status history.
type StatusChange struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  *int64    `json:"changed_by,omitempty"`
	Note       string    `json:"note,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`

	// Joined fields (not always populated).
	ChangedByName string `json:"changed_by_name,omitempty"`
}
