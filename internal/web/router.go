package web

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/lostfound/internal/events"
	webembed "github.com/erazemk/lostfound/web"
)

// Options carries the optional collaborators of the pages.
type Options struct {
	TokenTTL time.Duration
	Events   events.Publisher
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
		TokenTTL:  opts.TokenTTL,
		Events:    opts.Events,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	optionalAuth := OptionalCookieAuth(jwtSecret, db)
	page := func(h http.HandlerFunc) http.Handler { return optionalAuth(h) }
	private := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.Handle("GET /{$}", page(s.BrowsePage))
	mux.Handle("GET /items/{id}", page(s.ItemDetailPage))
	mux.HandleFunc("GET /items/{id}/image", s.ItemImage)
	mux.Handle("GET /login", page(s.LoginPage))
	mux.Handle("POST /login", page(s.LoginSubmit))
	mux.Handle("GET /register", page(s.RegisterPage))
	mux.Handle("POST /register", page(s.RegisterSubmit))
	mux.Handle("POST /logout", page(s.Logout))

	// Authenticated routes.
	mux.Handle("GET /items/new", private(s.ItemNewPage))
	mux.Handle("POST /items/new", private(s.ItemCreateSubmit))
	mux.Handle("GET /items/{id}/edit", private(s.ItemEditPage))
	mux.Handle("POST /items/{id}/edit", private(s.ItemUpdateSubmit))
	mux.Handle("POST /items/{id}/delete", private(s.ItemDeleteSubmit))
	mux.Handle("POST /items/{id}/claim", private(s.ClaimSubmit))
	mux.Handle("GET /my-items", private(s.MyItemsPage))
	mux.Handle("GET /my-claims", private(s.MyClaimsPage))
	mux.Handle("GET /settings", private(s.SettingsPage))
	mux.Handle("POST /settings", private(s.SettingsSubmit))

	// Admin routes; handlers check the capability.
	mux.Handle("GET /admin", private(s.AdminPage))
	mux.Handle("GET /admin/claims", private(s.AdminClaimsPage))
	mux.Handle("GET /admin/claims/{id}", private(s.AdminClaimPage))
	mux.Handle("POST /admin/claims/{id}", private(s.AdminReviewSubmit))

	return mux, nil
}
