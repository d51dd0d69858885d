package model

import (
	"strings"
	"time"
)

// ItemDraft holds the fields supplied when reporting an item.
type ItemDraft struct {
	Title       string
	Description string
	Category    string
	Type        string
	Location    string
	Date        time.Time
	ContactInfo string
	ImageURL    string
	Image       []byte
	ImageMime   string
}

// Validate trims the draft and checks required fields and limits.
func (d *ItemDraft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	d.ContactInfo = strings.TrimSpace(d.ContactInfo)
	d.ImageURL = strings.TrimSpace(d.ImageURL)

	if d.Title == "" || d.Description == "" || d.Category == "" || d.Type == "" || d.Location == "" || d.Date.IsZero() {
		return Invalid("missing required fields")
	}
	if err := validateText(d.Title, d.Description); err != nil {
		return err
	}
	if !ValidCategory(d.Category) {
		return Invalid("invalid category %q", d.Category)
	}
	if !ValidItemType(d.Type) {
		return Invalid("invalid type %q", d.Type)
	}
	return nil
}

// ItemPatch is a partial item update. Nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	Date        *time.Time
	ContactInfo *string
	ImageURL    *string
	Status      *string

	Image       []byte
	ImageMime   string
	RemoveImage bool
}

// Validate checks every field the patch sets.
func (p *ItemPatch) Validate() error {
	for _, f := range []**string{&p.Title, &p.Description, &p.Location, &p.ContactInfo, &p.ImageURL} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	if p.Title != nil && *p.Title == "" {
		return Invalid("title cannot be empty")
	}
	if p.Description != nil && *p.Description == "" {
		return Invalid("description cannot be empty")
	}
	if p.Location != nil && *p.Location == "" {
		return Invalid("location cannot be empty")
	}
	if p.ContactInfo != nil && *p.ContactInfo == "" {
		return Invalid("contact information cannot be empty")
	}
	title, description := "", ""
	if p.Title != nil {
		title = *p.Title
	}
	if p.Description != nil {
		description = *p.Description
	}
	if err := validateText(title, description); err != nil {
		return err
	}
	if p.Category != nil && !ValidCategory(*p.Category) {
		return Invalid("invalid category %q", *p.Category)
	}
	if p.Date != nil && p.Date.IsZero() {
		return Invalid("invalid date")
	}
	if p.Status != nil && !ValidItemStatus(*p.Status) {
		return Invalid("invalid status %q", *p.Status)
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p *ItemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Location == nil &&
		p.Date == nil && p.ContactInfo == nil && p.ImageURL == nil && p.Status == nil &&
		p.Image == nil && !p.RemoveImage
}

func validateText(title, description string) error {
	if len([]rune(title)) > MaxTitleLength {
		return Invalid("title cannot exceed %d characters", MaxTitleLength)
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return Invalid("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// ClaimDraft holds the fields supplied when filing a claim.
type ClaimDraft struct {
	Message          string
	ProofDescription string
}

// Validate trims the draft and checks required fields and limits.
func (d *ClaimDraft) Validate() error {
	d.Message = strings.TrimSpace(d.Message)
	d.ProofDescription = strings.TrimSpace(d.ProofDescription)

	if d.Message == "" || d.ProofDescription == "" {
		return Invalid("missing required fields")
	}
	if len([]rune(d.Message)) > MaxMessageLength {
		return Invalid("message cannot exceed %d characters", MaxMessageLength)
	}
	if len([]rune(d.ProofDescription)) > MaxProofLength {
		return Invalid("proof description cannot exceed %d characters", MaxProofLength)
	}
	return nil
}

// DateLayout is the accepted format for item dates in forms and JSON.
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, Invalid("invalid date %q", s)
	}
	return t, nil
}
