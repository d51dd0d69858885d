package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

type authPage struct {
	PageData
	Email string
	Name  string
	Next  string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &authPage{
		PageData: s.page(r, "Sign in"),
		Next:     r.URL.Query().Get("next"),
	})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	data := &authPage{PageData: s.page(r, "Sign in"), Email: email, Next: r.FormValue("next")}

	if email == "" || password == "" {
		data.Error = "Enter your email and password."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", data)
		return
	}

	user, err := auth.Authenticate(r.Context(), s.DB, email, password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user == nil {
		slog.Warn("login failed", "email", model.NormalizeEmail(email), "remote", r.RemoteAddr)
		data.Error = "Invalid email or password."
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	if err := s.startSession(w, user); err != nil {
		s.fail(w, r, err)
		return
	}
	slog.Info("user logged in", "user", user.ID, "role", user.Role)
	http.Redirect(w, r, safeNext(data.Next), http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", &authPage{PageData: s.page(r, "Create account")})
}

// RegisterSubmit handles POST /register and signs the new user in.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	name := r.FormValue("name")
	password := r.FormValue("password")
	data := &authPage{PageData: s.page(r, "Create account"), Email: email, Name: name}

	if password != r.FormValue("confirm_password") {
		data.Error = "Passwords do not match."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "register.html", data)
		return
	}

	user, err := auth.Register(r.Context(), s.DB, email, name, password)
	if err != nil {
		if msg := userMessage(err); msg != "" {
			data.Error = msg
			s.Templates.RenderStatus(w, http.StatusBadRequest, "register.html", data)
			return
		}
		s.fail(w, r, err)
		return
	}

	if err := s.startSession(w, user); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/?notice=registered", http.StatusSeeOther)
}

// startSession issues a token for user and stores it in the session cookie.
func (s *Server) startSession(w http.ResponseWriter, user *model.User) error {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = auth.TokenExpiry
	}
	token, err := auth.GenerateToken(s.JWTSecret, user, ttl)
	if err != nil {
		return err
	}
	setAuthCookie(w, token, ttl)
	return nil
}

// Logout handles POST /logout. The session token is revoked so a copied
// cookie stops working too.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil && claims.ID != "" {
		expires := time.Now().Add(auth.TokenExpiry)
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, expires); err != nil {
			slog.Error("failed to revoke token", "error", err)
		} else {
			slog.Info("user logged out", "user", claims.UserID)
		}
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Settings")
	s.Templates.Render(w, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (password change).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := s.page(r, "Settings")

	next := r.FormValue("new_password")
	if next != r.FormValue("confirm_password") {
		data.Error = "New passwords do not match."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "settings.html", &data)
		return
	}

	err := auth.ChangePassword(r.Context(), s.DB, claims.UserID, r.FormValue("current_password"), next)
	if err != nil {
		if msg := userMessage(err); msg != "" {
			data.Error = msg
			s.Templates.RenderStatus(w, http.StatusBadRequest, "settings.html", &data)
			return
		}
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/settings?notice=password", http.StatusSeeOther)
}
