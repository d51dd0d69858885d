package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// matchLimit caps the suggested matches shown on an item page.
const matchLimit = 5

// identity returns the caller's identity for the access gate.
func identity(r *http.Request) *access.Identity {
	return GetWebClaims(r.Context()).Identity()
}

// item loads the non-deleted {id} item and checks action against it.
func (s *Server) item(r *http.Request, action access.Action) (*model.Item, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return nil, model.ErrItemNotFound
	}
	item, err := store.GetItem(r.Context(), s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, model.ErrItemNotFound
	}
	if err := access.Check(action, identity(r), access.Resource{OwnerID: item.ReportedBy}); err != nil {
		return nil, err
	}
	return item, nil
}

type listPage struct {
	PageData
	Items      []model.Item
	Pagination model.Pagination
	Filter     store.ItemFilter
	Query      url.Values
	Categories []string
}

// BrowsePage handles GET /.
func (s *Server) BrowsePage(w http.ResponseWriter, r *http.Request) {
	data := &listPage{PageData: s.page(r, "Lost & Found"), Categories: model.Categories}

	f, err := store.ParseItemFilter(r.URL.Query())
	if err != nil {
		data.Error = userMessage(err)
		f = store.ItemFilter{}
	}
	s.renderList(w, r, data, f, "browse.html")
}

// MyItemsPage handles GET /my-items: every item the user reported, in any
// status.
func (s *Server) MyItemsPage(w http.ResponseWriter, r *http.Request) {
	data := &listPage{PageData: s.page(r, "My items"), Categories: model.Categories}

	f, err := store.ParseItemFilter(r.URL.Query())
	if err != nil {
		data.Error = userMessage(err)
		f = store.ItemFilter{}
	}
	f.ReportedBy = identity(r).UserID
	s.renderList(w, r, data, f, "my_items.html")
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, data *listPage, f store.ItemFilter, page string) {
	items, total, err := store.ListItems(r.Context(), s.DB, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f.Normalize()

	q := r.URL.Query()
	q.Del("page")
	q.Del("notice")
	data.Items = items
	data.Filter = f
	data.Query = q
	data.Pagination = model.NewPagination(f.Page, f.Limit, total)
	s.Templates.Render(w, page, data)
}

type detailPage struct {
	PageData
	Item     *model.Item
	Matches  []model.Item
	History  []model.StatusChange
	Claims   []model.Claim
	MyClaim  *model.Claim
	CanEdit  bool
	CanClaim bool
	Claim    model.ClaimDraft
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item, err := s.item(r, access.ReadItem)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.detail(r, item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Templates.Render(w, "item_detail.html", data)
}

// detail gathers everything the item page shows for the current visitor.
func (s *Server) detail(r *http.Request, item *model.Item) (*detailPage, error) {
	ctx := r.Context()
	id := identity(r)
	res := access.Resource{OwnerID: item.ReportedBy}
	data := &detailPage{
		PageData: s.page(r, item.Title),
		Item:     item,
		CanEdit:  access.Allowed(access.UpdateItem, id, res),
	}

	matches, err := store.FindMatches(ctx, s.DB, item, matchLimit)
	if err != nil {
		return nil, err
	}
	data.Matches = matches

	if access.Allowed(access.ItemHistory, id, res) {
		if data.History, err = store.ListItemHistory(ctx, s.DB, item.ID); err != nil {
			return nil, err
		}
	}
	if access.Allowed(access.ListAllClaims, id, access.Resource{}) {
		if data.Claims, err = store.ListClaims(ctx, s.DB, store.ClaimFilter{ItemID: item.ID}); err != nil {
			return nil, err
		}
	}

	if id.Authenticated() && !id.Owns(item.ReportedBy) {
		mine, err := store.ListClaims(ctx, s.DB, store.ClaimFilter{ItemID: item.ID, ClaimantID: id.UserID})
		if err != nil {
			return nil, err
		}
		if len(mine) > 0 {
			data.MyClaim = &mine[0]
		}
		data.CanClaim = data.MyClaim == nil && item.Status == model.ItemStatusOpen
	}
	return data, nil
}

// ItemImage handles GET /items/{id}/image.
func (s *Server) ItemImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

type formPage struct {
	PageData
	Item       *model.Item
	Form       itemForm
	Categories []string
	Statuses   []string
}

// ItemNewPage handles GET /items/new.
func (s *Server) ItemNewPage(w http.ResponseWriter, r *http.Request) {
	itemType := r.URL.Query().Get("type")
	if !model.ValidItemType(itemType) {
		itemType = model.ItemTypeLost
	}
	s.Templates.Render(w, "item_form.html", &formPage{
		PageData:   s.page(r, "Report an item"),
		Form:       itemForm{Type: itemType},
		Categories: model.Categories,
	})
}

// ItemCreateSubmit handles POST /items/new.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if err := access.Check(access.CreateItem, claims.Identity(), access.Resource{}); err != nil {
		s.fail(w, r, err)
		return
	}

	form, err := parseItemForm(w, r)
	var d *model.ItemDraft
	if err == nil {
		d, err = form.draft(claims.Email)
	}
	var item *model.Item
	if err == nil {
		item, err = store.CreateItem(r.Context(), s.DB, d, claims.UserID)
	}
	if err != nil {
		if msg := userMessage(err); msg != "" {
			data := &formPage{PageData: s.page(r, "Report an item"), Form: *form, Categories: model.Categories}
			data.Error = msg
			s.Templates.RenderStatus(w, http.StatusBadRequest, "item_form.html", data)
			return
		}
		s.fail(w, r, err)
		return
	}

	slog.Info("item reported", "item", item.ID, "type", item.Type, "user", claims.UserID)
	http.Redirect(w, r, fmt.Sprintf("/items/%d?notice=reported", item.ID), http.StatusSeeOther)
}

// statusChoices lists the statuses an edit form may offer for item.
func statusChoices(item *model.Item) []string {
	choices := []string{item.Status}
	for _, next := range []string{model.ItemStatusOpen, model.ItemStatusResolved} {
		if next != item.Status && model.CanTransitionItem(item.Status, next) {
			choices = append(choices, next)
		}
	}
	return choices
}

// ItemEditPage handles GET /items/{id}/edit.
func (s *Server) ItemEditPage(w http.ResponseWriter, r *http.Request) {
	item, err := s.item(r, access.UpdateItem)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Templates.Render(w, "item_form.html", &formPage{
		PageData:   s.page(r, "Edit "+item.Title),
		Item:       item,
		Form:       formFromItem(item),
		Categories: model.Categories,
		Statuses:   statusChoices(item),
	})
}

// ItemUpdateSubmit handles POST /items/{id}/edit.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	item, err := s.item(r, access.UpdateItem)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	form, err := parseItemForm(w, r)
	var p *model.ItemPatch
	if err == nil {
		p, err = form.patch()
	}
	if err == nil {
		_, err = store.UpdateItem(r.Context(), s.DB, item.ID, identity(r).UserID, p)
	}
	if err != nil {
		if msg := userMessage(err); msg != "" {
			form.Type = item.Type
			data := &formPage{
				PageData:   s.page(r, "Edit "+item.Title),
				Item:       item,
				Form:       *form,
				Categories: model.Categories,
				Statuses:   statusChoices(item),
			}
			data.Error = msg
			s.Templates.RenderStatus(w, http.StatusBadRequest, "item_form.html", data)
			return
		}
		s.fail(w, r, err)
		return
	}

	slog.Info("item updated", "item", item.ID, "user", identity(r).UserID)
	http.Redirect(w, r, fmt.Sprintf("/items/%d?notice=updated", item.ID), http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	item, err := s.item(r, access.DeleteItem)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := store.DeleteItem(r.Context(), s.DB, item.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	slog.Info("item deleted", "item", item.ID, "user", identity(r).UserID)
	http.Redirect(w, r, "/my-items?notice=deleted", http.StatusSeeOther)
}
