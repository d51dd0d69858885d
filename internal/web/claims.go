package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/events"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// ClaimSubmit handles POST /items/{id}/claim.
func (s *Server) ClaimSubmit(w http.ResponseWriter, r *http.Request) {
	item, err := s.item(r, access.ReadItem)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := identity(r)

	d := &model.ClaimDraft{
		Message:          r.FormValue("message"),
		ProofDescription: r.FormValue("proof_description"),
	}
	err = access.Check(access.FileClaim, id, access.Resource{OwnerID: item.ReportedBy})
	if err == nil {
		err = d.Validate()
	}
	var claim *model.Claim
	if err == nil {
		claim, err = store.FileClaim(r.Context(), s.DB, item.ID, id.UserID, d)
	}
	if err != nil {
		msg := userMessage(err)
		if msg == "" {
			s.fail(w, r, err)
			return
		}
		data, derr := s.detail(r, item)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		data.Error = msg
		data.Claim = *d
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_detail.html", data)
		return
	}

	slog.Info("claim filed", "claim", claim.ID, "item", item.ID, "user", id.UserID)
	events.Emit(r.Context(), s.Events, events.NewClaimEvent(events.ClaimFiled, claim))
	http.Redirect(w, r, fmt.Sprintf("/items/%d?notice=claimed", item.ID), http.StatusSeeOther)
}

type claimsPage struct {
	PageData
	Claims   []model.Claim
	Status   string
	Statuses []string
}

var claimStatuses = []string{model.ClaimStatusPending, model.ClaimStatusApproved, model.ClaimStatusRejected}

// MyClaimsPage handles GET /my-claims.
func (s *Server) MyClaimsPage(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := access.Check(access.ListOwnClaims, id, access.Resource{}); err != nil {
		s.fail(w, r, err)
		return
	}

	claims, err := store.ListClaims(r.Context(), s.DB, store.ClaimFilter{ClaimantID: id.UserID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Templates.Render(w, "my_claims.html", &claimsPage{PageData: s.page(r, "My claims"), Claims: claims})
}

// AdminClaimsPage handles GET /admin/claims, optionally filtered by status.
func (s *Server) AdminClaimsPage(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.ListAllClaims, identity(r), access.Resource{}); err != nil {
		s.fail(w, r, err)
		return
	}

	status := r.URL.Query().Get("status")
	if !model.ValidClaimStatus(status) {
		status = ""
	}
	claims, err := store.ListClaims(r.Context(), s.DB, store.ClaimFilter{Status: status})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Templates.Render(w, "admin_claims.html", &claimsPage{
		PageData: s.page(r, "Claims"),
		Claims:   claims,
		Status:   status,
		Statuses: claimStatuses,
	})
}

type reviewPage struct {
	PageData
	Claim *model.Claim
	Item  *model.Item
	Notes string
}

// reviewData loads the {id} claim and its item for the review page.
func (s *Server) reviewData(r *http.Request) (*reviewPage, error) {
	if err := access.Check(access.ReviewClaim, identity(r), access.Resource{}); err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return nil, model.ErrClaimNotFound
	}
	claim, err := store.GetClaim(r.Context(), s.DB, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, model.ErrClaimNotFound
	}
	item, err := store.GetItem(r.Context(), s.DB, claim.ItemID)
	if err != nil {
		return nil, err
	}
	return &reviewPage{
		PageData: s.page(r, fmt.Sprintf("Claim #%d", claim.ID)),
		Claim:    claim,
		Item:     item,
	}, nil
}

// AdminClaimPage handles GET /admin/claims/{id}.
func (s *Server) AdminClaimPage(w http.ResponseWriter, r *http.Request) {
	data, err := s.reviewData(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Templates.Render(w, "admin_claim.html", data)
}

// AdminReviewSubmit handles POST /admin/claims/{id}.
func (s *Server) AdminReviewSubmit(w http.ResponseWriter, r *http.Request) {
	data, err := s.reviewData(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reviewer := identity(r)

	notes := r.FormValue("admin_notes")
	if len([]rune(notes)) > model.MaxNotesLength {
		err = model.Invalid("admin notes cannot exceed %d characters", model.MaxNotesLength)
	}
	var claim *model.Claim
	if err == nil {
		claim, err = store.ReviewClaim(r.Context(), s.DB, data.Claim.ID, reviewer.UserID, r.FormValue("status"), notes)
	}
	if err != nil {
		if msg := userMessage(err); msg != "" {
			data.Error = msg
			data.Notes = notes
			s.Templates.RenderStatus(w, http.StatusBadRequest, "admin_claim.html", data)
			return
		}
		s.fail(w, r, err)
		return
	}

	slog.Info("claim reviewed", "claim", claim.ID, "status", claim.Status, "item", claim.ItemID, "user", reviewer.UserID)
	events.Emit(r.Context(), s.Events, events.NewClaimEvent(events.ClaimReviewed, claim))
	http.Redirect(w, r, fmt.Sprintf("/admin/claims/%d?notice=reviewed", claim.ID), http.StatusSeeOther)
}
