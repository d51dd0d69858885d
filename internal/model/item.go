package model

import (
	"fmt"
	"slices"
	"time"
)

// Item is a reported lost or found physical object.
type Item struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Location    string     `json:"location"`
	Date        time.Time  `json:"date"`
	ImageURL    string     `json:"image_url,omitempty"`
	ImageMime   string     `json:"image_mime,omitempty"`
	ImageSize   int64      `json:"image_size,omitempty"`
	ContactInfo string     `json:"contact_info"`
	ReportedBy  int64      `json:"reported_by"`
	ClaimedBy   *int64     `json:"claimed_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	ReporterName  string `json:"reporter_name,omitempty"`
	ReporterEmail string `json:"reporter_email,omitempty"`
	ClaimedByName string `json:"claimed_by_name,omitempty"`
}

// HasImage reports whether an uploaded image blob is stored for the item.
func (i Item) HasImage() bool {
	return i.ImageMime != ""
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item statuses.
const (
	ItemStatusOpen     = "open"
	ItemStatusClaimed  = "claimed"
	ItemStatusResolved = "resolved"
)

// Field limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// Categories is the closed set of item categories, in display order.
var Categories = []string{
	"Electronics",
	"Clothing",
	"Books",
	"Accessories",
	"Documents",
	"Keys",
	"Bags",
	"Sports Equipment",
	"Other",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// ValidItemType reports whether t is lost or found.
func ValidItemType(t string) bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	return s == ItemStatusOpen || s == ItemStatusClaimed || s == ItemStatusResolved
}

// itemTransitions lists every permitted item status change. Resolved is terminal.
var itemTransitions = map[string][]string{
	ItemStatusOpen:    {ItemStatusClaimed},
	ItemStatusClaimed: {ItemStatusOpen, ItemStatusResolved},
}

// CanTransitionItem reports whether an item may move from one status to another.
func CanTransitionItem(from, to string) bool {
	return slices.Contains(itemTransitions[from], to)
}

// CheckItemTransition returns ErrInvalidTransition when from -> to is not allowed.
// Keeping the same status is always allowed.
func CheckItemTransition(from, to string) error {
	if from == to || CanTransitionItem(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// OppositeType returns the type a matching report would have.
func OppositeType(t string) string {
	if t == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}
