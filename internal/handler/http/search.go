package http

import (
	"net/http"

	"github.com/devops-golf-s17/wishlists/pkg/httputil"
)

// Search handles GET /wishlists/search?q=&user_id=
func (h *WishlistHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "user_id query parameter is required"},
		})
		return
	}

	hits, err := h.service.Search(r.Context(), q.Get("q"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, hits)
}
