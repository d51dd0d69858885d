package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/lostfound/internal/model"
)

// Listing defaults.
const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
	// MaxPage keeps the row offset within 32 bits.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// ItemFilter narrows ListItems. Zero values mean "no filter".
type ItemFilter struct {
	Type     string
	Category string
	// Status is one of the item statuses, or "" / "all" for open and
	// claimed items. When ReportedBy is set, "" / "all" means every status.
	Status     string
	Search     string
	ReportedBy int64
	Page       int
	Limit      int
}

// ParseItemFilter reads list filters from query parameters. Unparseable
// page and limit values fall back to their defaults.
func ParseItemFilter(q url.Values) (ItemFilter, error) {
	f := ItemFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if f.Type != "" && !model.ValidItemType(f.Type) {
		return f, model.Invalid("invalid type %q", f.Type)
	}
	if f.Category != "" && !model.ValidCategory(f.Category) {
		return f, model.Invalid("invalid category %q", f.Category)
	}
	if f.Status != "" && f.Status != "all" && !model.ValidItemStatus(f.Status) {
		return f, model.Invalid("invalid status %q", f.Status)
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Normalize()
	return f, nil
}

// Normalize clamps page and limit to their defaults and bounds.
func (f *ItemFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

const itemSelect = `SELECT i.id, i.title, i.description, i.category, i.type, i.status, i.location,
        i.occurred_at, i.image_url, i.image_mime, i.image_size, i.contact_info,
        i.reported_by, i.claimed_by, i.resolved_at, i.created_at, i.updated_at, i.deleted_at,
        u.name, u.email, COALESCE(c.name, '')
 FROM items i
 JOIN users u ON u.id = i.reported_by
 LEFT JOIN users c ON c.id = i.claimed_by`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var imageURL, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Type, &item.Status,
		&item.Location, &item.Date, &imageURL, &imageMime, &item.ImageSize, &item.ContactInfo,
		&item.ReportedBy, &item.ClaimedBy, &item.ResolvedAt, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.ReporterName, &item.ReporterEmail, &item.ClaimedByName)
	if err != nil {
		return nil, err
	}
	item.ImageURL = imageURL.String
	item.ImageMime = imageMime.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem stores a new open item reported by reportedBy. The draft must
// already be validated.
func CreateItem(ctx context.Context, db *sql.DB, d *model.ItemDraft, reportedBy int64) (*model.Item, error) {
	var image any
	if len(d.Image) > 0 {
		image = d.Image
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning item creation: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (title, description, category, type, location, occurred_at,
		                    image_url, image, image_mime, image_size, contact_info, reported_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Title, d.Description, d.Category, d.Type, d.Location, d.Date.UTC(),
		nullString(d.ImageURL), image, nullString(d.ImageMime), len(d.Image), d.ContactInfo, reportedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}
	if err := recordStatusChange(ctx, tx, id, "", model.ItemStatusOpen, reportedBy, "reported"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item creation: %w", err)
	}
	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns one page of non-deleted items matching f, newest first,
// together with the total number of matches.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, int, error) {
	f.Normalize()

	where := []string{"i.deleted_at IS NULL"}
	var args []any

	switch {
	case f.Status != "" && f.Status != "all":
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	case f.ReportedBy == 0:
		where = append(where, "i.status IN (?, ?)")
		args = append(args, model.ItemStatusOpen, model.ItemStatusClaimed)
	}
	if f.Type != "" {
		where = append(where, "i.type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where = append(where, "i.category = ?")
		args = append(args, f.Category)
	}
	if f.ReportedBy > 0 {
		where = append(where, "i.reported_by = ?")
		args = append(args, f.ReportedBy)
	}
	for _, term := range strings.Fields(strings.ToLower(f.Search)) {
		pattern := "%" + escapeLike(term) + "%"
		where = append(where, `(LOWER(i.title) LIKE ? ESCAPE '\' OR LOWER(i.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items i`+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		itemSelect+clause+` ORDER BY i.created_at DESC, i.id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, (f.Page-1)*f.Limit)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateItem applies a validated patch to a non-deleted item.
//
// Status changes follow the item transition table. Claims alone move an item
// to claimed, and a claimed item reopens only when no claim is pending.
// Resolving stamps resolved_at and rejects every pending claim. Status
// changes are recorded in the item history against actorID.
func UpdateItem(ctx context.Context, db *sql.DB, id, actorID int64, p *model.ItemPatch) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning item update: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, model.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading item status: %w", err)
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.Location != nil {
		set("location", *p.Location)
	}
	if p.Date != nil {
		set("occurred_at", p.Date.UTC())
	}
	if p.ContactInfo != nil {
		set("contact_info", *p.ContactInfo)
	}
	if p.ImageURL != nil {
		set("image_url", nullString(*p.ImageURL))
	}
	switch {
	case p.Image != nil:
		set("image", p.Image)
		set("image_mime", p.ImageMime)
		set("image_size", len(p.Image))
	case p.RemoveImage:
		sets = append(sets, "image = NULL", "image_mime = NULL", "image_size = 0")
	}

	next := current
	if p.Status != nil && *p.Status != current {
		next = *p.Status
		if err := model.CheckItemTransition(current, next); err != nil {
			return nil, err
		}
		switch next {
		case model.ItemStatusClaimed:
			return nil, fmt.Errorf("%w: items are claimed by filing a claim", model.ErrInvalidTransition)
		case model.ItemStatusOpen:
			pending, err := countPending(ctx, tx, id, 0)
			if err != nil {
				return nil, err
			}
			if pending > 0 {
				return nil, fmt.Errorf("%w: item has pending claims", model.ErrInvalidTransition)
			}
		case model.ItemStatusResolved:
			sets = append(sets, "resolved_at = CURRENT_TIMESTAMP")
		}
		set("status", next)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id, current)
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: item changed concurrently", model.ErrInvalidTransition)
	}

	if next != current {
		if err := recordStatusChange(ctx, tx, id, current, next, actorID, "edited"); err != nil {
			return nil, err
		}
	}
	if next == model.ItemStatusResolved && current != next {
		_, err := tx.ExecContext(ctx,
			`UPDATE claims SET status = ?, admin_notes = ?, reviewed_at = CURRENT_TIMESTAMP,
			        updated_at = CURRENT_TIMESTAMP
			 WHERE item_id = ? AND status = ?`,
			model.ClaimStatusRejected, model.ResolvedNote, id, model.ClaimStatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("rejecting pending claims: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}
	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item. Its claims are kept.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// GetItemImage returns a non-deleted item's uploaded image and MIME type.
// It returns a nil slice when the item or its image is missing.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// FindMatches returns up to limit non-resolved items of the opposite type
// whose title or location equals the item's, ignoring case. Newest first.
func FindMatches(ctx context.Context, db *sql.DB, item *model.Item, limit int) ([]model.Item, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := db.QueryContext(ctx,
		itemSelect+` WHERE i.deleted_at IS NULL AND i.id != ? AND i.type = ? AND i.status != ?
		  AND (LOWER(i.title) = LOWER(?) OR LOWER(i.location) = LOWER(?))
		 ORDER BY i.created_at DESC, i.id DESC LIMIT ?`,
		item.ID, model.OppositeType(item.Type), model.ItemStatusResolved, item.Title, item.Location, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("finding matches: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// RecentItems returns the most recently reported non-deleted items.
func RecentItems(ctx context.Context, db *sql.DB, limit int) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		itemSelect+` WHERE i.deleted_at IS NULL ORDER BY i.created_at DESC, i.id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countPending counts pending claims on an item, excluding one claim ID.
func countPending(ctx context.Context, q queryer, itemID, exclude int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND status = ? AND id != ?`,
		itemID, model.ClaimStatusPending, exclude,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending claims: %w", err)
	}
	return n, nil
}
