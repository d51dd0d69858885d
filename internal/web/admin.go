package web

import (
	"net/http"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// recentLimit is how many recent items and claims the dashboard lists.
const recentLimit = 5

// AdminPage handles GET /admin.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.ViewStats, identity(r), access.Resource{}); err != nil {
		s.fail(w, r, err)
		return
	}

	overview, err := store.GetOverview(r.Context(), s.DB, recentLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.Templates.Render(w, "admin.html", &struct {
		PageData
		*model.Overview
	}{
		PageData: s.page(r, "Dashboard"),
		Overview: overview,
	})
}
