// Package workflow holds the claim-resolution rules that couple item status
// and claim status. The functions are pure; internal/store applies their
// outcomes inside a single transaction.
package workflow

import (
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

// Filing describes the facts checked before a claim is created.
type Filing struct {
	ItemStatus     string
	ReportedBy     int64
	ClaimantID     int64
	AlreadyClaimed bool
}

// CheckFiling validates a new claim. The checks run in the same order as the
// user sees them: availability, ownership, then uniqueness.
func CheckFiling(f Filing) error {
	if f.ItemStatus != model.ItemStatusOpen {
		return model.ErrItemNotOpen
	}
	if f.ReportedBy == f.ClaimantID {
		return model.ErrOwnItem
	}
	if f.AlreadyClaimed {
		return model.ErrDuplicateClaim
	}
	return nil
}

// Review describes an admin decision and the state it is applied to.
type Review struct {
	Decision     string
	ClaimStatus  string
	OtherPending int
}

// Outcome is the effect of a review on the claim, its item and the item's
// other pending claims. An empty ItemStatus leaves the item unchanged.
type Outcome struct {
	ClaimStatus  string
	ItemStatus   string
	RejectOthers bool
	OthersNote   string
}

// Decide maps a review onto its outcome.
//
// Approval resolves the item and rejects every other pending claim.
// Rejection reopens the item only when no other claim is still pending.
func Decide(r Review) (Outcome, error) {
	if r.Decision != model.ClaimStatusApproved && r.Decision != model.ClaimStatusRejected {
		return Outcome{}, fmt.Errorf("%w: %q", model.ErrInvalidDecision, r.Decision)
	}
	if r.ClaimStatus != model.ClaimStatusPending {
		return Outcome{}, model.ErrClaimReviewed
	}

	if r.Decision == model.ClaimStatusApproved {
		return Outcome{
			ClaimStatus:  model.ClaimStatusApproved,
			ItemStatus:   model.ItemStatusResolved,
			RejectOthers: r.OtherPending > 0,
			OthersNote:   model.SupersededNote,
		}, nil
	}

	out := Outcome{ClaimStatus: model.ClaimStatusRejected}
	if r.OtherPending == 0 {
		out.ItemStatus = model.ItemStatusOpen
	}
	return out, nil
}
