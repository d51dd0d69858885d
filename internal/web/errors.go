package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
)

// userMessage returns the text to show for an expected error, or "" when err
// is unexpected.
func userMessage(err error) string {
	switch {
	case model.IsValidation(err), model.IsConflict(err):
		return err.Error()
	case errors.Is(err, imaging.ErrTooLarge):
		return imaging.ErrTooLarge.Error()
	case errors.Is(err, imaging.ErrUnsupported):
		return imaging.ErrUnsupported.Error()
	}
	return ""
}

// fail renders the error page for err. Anonymous visitors hitting a
// protected action are sent to the login page instead.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, access.ErrUnauthenticated) {
		redirectToLogin(w, r)
		return
	}

	status, msg := http.StatusBadRequest, userMessage(err)
	switch {
	case msg != "":
	case errors.Is(err, access.ErrForbidden):
		status, msg = http.StatusForbidden, "You don't have permission to do that."
	case errors.Is(err, model.ErrItemNotFound):
		status, msg = http.StatusNotFound, "Item not found."
	case errors.Is(err, model.ErrClaimNotFound):
		status, msg = http.StatusNotFound, "Claim not found."
	default:
		slog.Error("page request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		status, msg = http.StatusInternalServerError, "Something went wrong. Please try again."
	}

	data := s.page(r, "Error")
	data.Error = msg
	s.Templates.RenderStatus(w, status, "error.html", &data)
}
