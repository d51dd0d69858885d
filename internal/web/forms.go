package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
)

// itemForm is the submitted item form. Fields keep the raw input so the form
// can be redisplayed after a validation error.
type itemForm struct {
	Title       string
	Description string
	Category    string
	Type        string
	Location    string
	Date        string
	ContactInfo string
	ImageURL    string
	Status      string
	RemoveImage bool

	photo *imaging.Photo
}

const maxFormBytes = imaging.MaxUploadBytes + 1<<20

// formFromItem prefills the edit form.
func formFromItem(item *model.Item) itemForm {
	return itemForm{
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Type:        item.Type,
		Location:    item.Location,
		Date:        item.Date.Format(model.DateLayout),
		ContactInfo: item.ContactInfo,
		ImageURL:    item.ImageURL,
		Status:      item.Status,
	}
}

// parseItemForm reads an item form, urlencoded or multipart with an optional
// "image" file. The form is returned even on error for redisplay.
func parseItemForm(w http.ResponseWriter, r *http.Request) (*itemForm, error) {
	f := &itemForm{}
	multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if multipart {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return f, imaging.ErrTooLarge
			}
			return f, model.Invalid("invalid form submission")
		}
	} else if err := r.ParseForm(); err != nil {
		return f, model.Invalid("invalid form submission")
	}

	f.Title = r.FormValue("title")
	f.Description = r.FormValue("description")
	f.Category = r.FormValue("category")
	f.Type = r.FormValue("type")
	f.Location = r.FormValue("location")
	f.Date = r.FormValue("date")
	f.ContactInfo = r.FormValue("contact_info")
	f.ImageURL = r.FormValue("image_url")
	f.Status = r.FormValue("status")
	f.RemoveImage = r.FormValue("remove_image") == "on"

	if !multipart {
		return f, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return f, nil
	}
	if err != nil {
		return f, model.Invalid("invalid image upload")
	}
	defer file.Close()

	photo, err := imaging.Process(file, header.Header.Get("Content-Type"))
	if err != nil {
		return f, err
	}
	f.photo = photo
	return f, nil
}

func (f *itemForm) date() (time.Time, error) {
	if strings.TrimSpace(f.Date) == "" {
		return time.Time{}, model.Invalid("missing required fields")
	}
	return model.ParseDate(f.Date)
}

// draft builds a validated new item. contactDefault fills an empty contact.
func (f *itemForm) draft(contactDefault string) (*model.ItemDraft, error) {
	date, err := f.date()
	if err != nil {
		return nil, err
	}
	d := &model.ItemDraft{
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		Type:        f.Type,
		Location:    f.Location,
		Date:        date,
		ContactInfo: f.ContactInfo,
		ImageURL:    f.ImageURL,
	}
	if strings.TrimSpace(d.ContactInfo) == "" {
		d.ContactInfo = contactDefault
	}
	if f.photo != nil {
		d.Image = f.photo.Data
		d.ImageMime = f.photo.MIME
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// patch builds a validated full-form update. The type is fixed at creation
// and an unchanged status is left alone.
func (f *itemForm) patch() (*model.ItemPatch, error) {
	date, err := f.date()
	if err != nil {
		return nil, err
	}
	p := &model.ItemPatch{
		Title:       &f.Title,
		Description: &f.Description,
		Category:    &f.Category,
		Location:    &f.Location,
		Date:        &date,
		ContactInfo: &f.ContactInfo,
		ImageURL:    &f.ImageURL,
		RemoveImage: f.RemoveImage,
	}
	if f.Status != "" {
		p.Status = &f.Status
	}
	if f.photo != nil {
		p.Image = f.photo.Data
		p.ImageMime = f.photo.MIME
		p.RemoveImage = false
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
