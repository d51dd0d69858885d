package model

import "time"

// Claim is one user's assertion of ownership over one item.
type Claim struct {
	ID               int64      `json:"id"`
	ItemID           int64      `json:"item_id"`
	ClaimantID       int64      `json:"claimant_id"`
	Status           string     `json:"status"`
	Message          string     `json:"message"`
	ProofDescription string     `json:"proof_description"`
	AdminNotes       string     `json:"admin_notes,omitempty"`
	ReviewedBy       *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	ItemTitle     string `json:"item_title,omitempty"`
	ItemType      string `json:"item_type,omitempty"`
	ItemStatus    string `json:"item_status,omitempty"`
	ClaimantName  string `json:"claimant_name,omitempty"`
	ClaimantEmail string `json:"claimant_email,omitempty"`
	ReviewerName  string `json:"reviewer_name,omitempty"`
}

// Claim statuses.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// Field limits.
const (
	MaxMessageLength = 500
	MaxProofLength   = 1000
	MaxNotesLength   = 1000
)

// SupersededNote is stored on pending claims rejected because a competing
// claim on the same item was approved.
const SupersededNote = "Another claim was approved"

// ResolvedNote is stored on pending claims rejected because the item was
// marked resolved by its reporter or an admin.
const ResolvedNote = "Item was marked resolved"

// ValidClaimStatus reports whether s is a known claim status.
func ValidClaimStatus(s string) bool {
	return s == ClaimStatusPending || s == ClaimStatusApproved || s == ClaimStatusRejected
}
