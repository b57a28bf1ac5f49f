package handlers

import (
	"net/http"

	"github.com/siteulation/backend/internal/middleware"
)

// Me handles GET /api/user: the authenticated account, including the current
// credit balance.
func Me(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}
