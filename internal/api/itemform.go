package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
)

// itemRequest is the body of item create and update requests, sent either as
// JSON or as a multipart form with an optional "image" file part. Nil fields
// were not supplied.
type itemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Type        *string `json:"type"`
	Location    *string `json:"location"`
	Date        *string `json:"date"`
	ContactInfo *string `json:"contact_info"`
	ImageURL    *string `json:"image_url"`
	Status      *string `json:"status"`
	RemoveImage bool    `json:"remove_image"`

	photo *imaging.Photo
}

// maxFormBytes bounds a multipart item request: the image plus text fields.
const maxFormBytes = imaging.MaxUploadBytes + 1<<20

func parseItemRequest(w http.ResponseWriter, r *http.Request) (*itemRequest, error) {
	req := &itemRequest{}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeJSON(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, imaging.ErrTooLarge
		}
		return nil, model.Invalid("invalid multipart form")
	}

	field := func(name string) *string {
		if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}
	req.Title = field("title")
	req.Description = field("description")
	req.Category = field("category")
	req.Type = field("type")
	req.Location = field("location")
	req.Date = field("date")
	req.ContactInfo = field("contact_info")
	req.ImageURL = field("image_url")
	req.Status = field("status")
	req.RemoveImage = r.FormValue("remove_image") == "true" || r.FormValue("remove_image") == "on"

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, model.Invalid("invalid image upload")
	}
	defer file.Close()

	photo, err := imaging.Process(file, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	req.photo = photo
	return req, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// draft builds a validated new item. contactDefault fills an empty contact.
func (req *itemRequest) draft(contactDefault string) (*model.ItemDraft, error) {
	d := &model.ItemDraft{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Category:    deref(req.Category),
		Type:        deref(req.Type),
		Location:    deref(req.Location),
		ContactInfo: deref(req.ContactInfo),
		ImageURL:    deref(req.ImageURL),
	}
	if strings.TrimSpace(d.ContactInfo) == "" {
		d.ContactInfo = contactDefault
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		date, err := model.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		d.Date = date
	}
	if req.photo != nil {
		d.Image = req.photo.Data
		d.ImageMime = req.photo.MIME
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// patch builds a validated partial update of an item of type currentType.
func (req *itemRequest) patch(currentType string) (*model.ItemPatch, error) {
	if req.Type != nil && *req.Type != currentType {
		return nil, model.Invalid("item type cannot be changed")
	}
	p := &model.ItemPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ContactInfo: req.ContactInfo,
		ImageURL:    req.ImageURL,
		Status:      req.Status,
		RemoveImage: req.RemoveImage,
	}
	if req.Date != nil {
		date, err := model.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		p.Date = &date
	}
	if req.photo != nil {
		p.Image = req.photo.Data
		p.ImageMime = req.photo.MIME
		p.RemoveImage = false
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, model.Invalid("no changes supplied")
	}
	return p, nil
}
