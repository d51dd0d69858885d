package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/lostfound/internal/access"
	"github.com/erazemk/lostfound/internal/store"
)

// AdminHandler serves the admin dashboard data.
type AdminHandler struct {
	DB *sql.DB
}

// recentLimit is how many recent items and claims the dashboard shows.
const recentLimit = 5

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.ViewStats, identity(r), access.Resource{}); err != nil {
		writeError(w, r, err)
		return
	}

	overview, err := store.GetOverview(r.Context(), h.DB, recentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, overview)
}
