package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/events"
	"github.com/erazemk/lostfound/internal/model"
	webembed "github.com/erazemk/lostfound/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

var titleCaser = cases.Title(language.English)

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"label": func(s string) string {
			return titleCaser.String(s)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"datetime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"inputDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(model.DateLayout)
		},
		"add": func(a, b int) int { return a + b },
		"pageURL": func(q url.Values, page int) string {
			next := url.Values{}
			for k, v := range q {
				next[k] = v
			}
			next.Set("page", strconv.Itoa(page))
			return "?" + next.Encode()
		},
	}
}

// pages lists every page template; each is parsed together with layout.html.
var pages = []string{
	"login.html",
	"register.html",
	"browse.html",
	"item_detail.html",
	"item_form.html",
	"my_items.html",
	"my_claims.html",
	"settings.html",
	"admin.html",
	"admin_claims.html",
	"admin_claim.html",
	"error.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data and a 200 status.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// IsAdmin reports whether the signed-in user is an admin.
func (p *PageData) IsAdmin() bool {
	return p.User != nil && p.User.Role == model.RoleAdmin
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	TokenTTL  time.Duration
	Events    events.Publisher
}

// page builds the base page data for r.
func (s *Server) page(r *http.Request, title string) PageData {
	return PageData{
		Title:   title,
		User:    GetWebClaims(r.Context()),
		Success: notices[r.URL.Query().Get("notice")],
	}
}

// notices are the confirmation messages shown after a redirect.
var notices = map[string]string{
	"registered": "Welcome! Your account is ready.",
	"reported":   "Your item has been reported.",
	"updated":    "Item updated.",
	"deleted":    "Item deleted.",
	"claimed":    "Your claim has been submitted for review.",
	"reviewed":   "Claim reviewed.",
	"password":   "Password updated.",
}
