package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/lostfound/internal/config"
	"github.com/erazemk/lostfound/internal/events"
	"github.com/erazemk/lostfound/internal/model"
)

// Options carries the optional collaborators of the API.
type Options struct {
	TokenTTL  time.Duration
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Events    events.Publisher
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.Events == nil {
		opts.Events = events.Nop{}
	}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: opts.TokenTTL}
	itemsHandler := &ItemsHandler{DB: db}
	claimsHandler := &ClaimsHandler{DB: db, Events: opts.Events}
	adminHandler := &AdminHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	optionalAuth := OptionalAuth(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	limit := func(name string) func(http.Handler) http.Handler {
		return RateLimit(opts.RateLimit, opts.Redis, name)
	}

	// Accounts.
	mux.Handle("POST /api/auth/register", limit("register")(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limit("login")(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Items: reads are public, writes need a signed-in owner or admin.
	mux.Handle("GET /api/items", optionalAuth(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("PATCH /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.HandleFunc("GET /api/items/{id}/matches", itemsHandler.Matches)
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsHandler.History)))

	// Claims.
	mux.Handle("POST /api/claims", authMW(limit("claims")(http.HandlerFunc(claimsHandler.Create))))
	mux.Handle("GET /api/claims", authMW(http.HandlerFunc(claimsHandler.List)))
	mux.Handle("GET /api/claims/{id}", authMW(http.HandlerFunc(claimsHandler.Get)))
	mux.Handle("PATCH /api/claims/{id}", authMW(http.HandlerFunc(claimsHandler.Review)))

	// Admin.
	mux.Handle("GET /api/admin/stats", authMW(requireAdmin(http.HandlerFunc(adminHandler.Stats))))

	return mux
}
