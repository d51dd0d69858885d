package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

// matchLimit caps the suggested matches returned for one item.
const matchLimit = 5

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := store.ParseItemFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("mine") == "true" {
		id := identity(r)
		if !id.Authenticated() {
			writeError(w, r, access.ErrUnauthenticated)
			return
		}
		f.ReportedBy = id.UserID
	}

	items, total, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": model.NewPagination(f.Page, f.Limit, total),
	})
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := access.Check(access.CreateItem, claims.Identity(), access.Resource{}); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := parseItemRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := req.draft(claims.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, d, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item reported", "item", item.ID, "type", item.Type, "user", claims.UserID)
	jsonResponse(w, http.StatusCreated, map[string]any{"item": item})
}

// loadItem returns a non-deleted item or model.ErrItemNotFound.
func loadItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, model.ErrItemNotFound
	}
	return item, nil
}

// loadAuthorized loads the {id} item and checks action against its reporter.
func (h *ItemsHandler) loadAuthorized(r *http.Request, action access.Action) (*model.Item, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	item, err := loadItem(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(action, identity(r), access.Resource{OwnerID: item.ReportedBy}); err != nil {
		return nil, err
	}
	return item, nil
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadAuthorized(r, access.ReadItem)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"item": item})
}

// Update handles PATCH /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadAuthorized(r, access.UpdateItem)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := parseItemRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.patch(item.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := store.UpdateItem(r.Context(), h.DB, item.ID, identity(r).UserID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "item", item.ID, "status", updated.Status, "user", identity(r).UserID)
	jsonResponse(w, http.StatusOK, map[string]any{"item": updated})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadAuthorized(r, access.DeleteItem)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "item", item.ID, "user", identity(r).UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveItemImage(w, r, h.DB, id)
}

// serveItemImage writes an item's stored image, or a 404.
func serveItemImage(w http.ResponseWriter, r *http.Request, db *sql.DB, id int64) {
	data, mime, err := store.GetItemImage(r.Context(), db, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// Matches handles GET /api/items/{id}/matches.
func (h *ItemsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadAuthorized(r, access.ReadItem)
	if err != nil {
		writeError(w, r, err)
		return
	}

	matches, err := store.FindMatches(r.Context(), h.DB, item, matchLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": matches})
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadAuthorized(r, access.ItemHistory)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := store.ListItemHistory(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.StatusChange{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"history": history})
}
