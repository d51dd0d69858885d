package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/events"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// ClaimsHandler handles claim filing and review endpoints.
type ClaimsHandler struct {
	DB     *sql.DB
	Events events.Publisher
}

type fileClaimRequest struct {
	ItemID           int64  `json:"item_id"`
	Message          string `json:"message"`
	ProofDescription string `json:"proof_description"`
}

type reviewClaimRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes"`
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req fileClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ItemID < 1 {
		writeError(w, r, model.Invalid("item_id is required"))
		return
	}
	d := &model.ClaimDraft{Message: req.Message, ProofDescription: req.ProofDescription}
	if err := d.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := loadItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := identity(r)
	if err := access.Check(access.FileClaim, id, access.Resource{OwnerID: item.ReportedBy}); err != nil {
		writeError(w, r, err)
		return
	}

	claim, err := store.FileClaim(r.Context(), h.DB, item.ID, id.UserID, d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("claim filed", "claim", claim.ID, "item", item.ID, "user", id.UserID)
	events.Emit(r.Context(), h.Events, events.NewClaimEvent(events.ClaimFiled, claim))
	jsonResponse(w, http.StatusCreated, map[string]any{"claim": claim})
}

// List handles GET /api/claims. Admins see every claim; other users see
// their own.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	q := r.URL.Query()

	f := store.ClaimFilter{Status: q.Get("status")}
	if f.Status != "" && f.Status != "all" && !model.ValidClaimStatus(f.Status) {
		writeError(w, r, model.Invalid("invalid status %q", f.Status))
		return
	}
	if v := q.Get("item_id"); v != "" {
		itemID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, model.Invalid("invalid item_id"))
			return
		}
		f.ItemID = itemID
	}

	if access.Allowed(access.ListAllClaims, id, access.Resource{}) {
		if q.Get("mine") == "true" {
			f.ClaimantID = id.UserID
		}
	} else {
		if err := access.Check(access.ListOwnClaims, id, access.Resource{}); err != nil {
			writeError(w, r, err)
			return
		}
		f.ClaimantID = id.UserID
	}

	claims, err := store.ListClaims(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"claims": claims})
}

// loadClaim returns the {id} claim or model.ErrClaimNotFound.
func (h *ClaimsHandler) loadClaim(r *http.Request) (*model.Claim, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	claim, err := store.GetClaim(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, model.ErrClaimNotFound
	}
	return claim, nil
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claim, err := h.loadClaim(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.Check(access.ReadClaim, identity(r), access.Resource{OwnerID: claim.ClaimantID}); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"claim": claim})
}

// Review handles PATCH /api/claims/{id}. The capability check runs before
// anything else, so non-admins get 403 whatever the claim's state.
func (h *ClaimsHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := access.Check(access.ReviewClaim, id, access.Resource{}); err != nil {
		writeError(w, r, err)
		return
	}

	claimID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len([]rune(req.AdminNotes)) > model.MaxNotesLength {
		writeError(w, r, model.Invalid("admin notes cannot exceed %d characters", model.MaxNotesLength))
		return
	}

	claim, err := store.ReviewClaim(r.Context(), h.DB, claimID, id.UserID, req.Status, req.AdminNotes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("claim reviewed", "claim", claim.ID, "status", claim.Status, "item", claim.ItemID, "user", id.UserID)
	events.Emit(r.Context(), h.Events, events.NewClaimEvent(events.ClaimReviewed, claim))
	jsonResponse(w, http.StatusOK, map[string]any{"claim": claim})
}
