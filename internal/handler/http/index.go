package http

import (
	"net/http"

	"github.com/devops-golf-s17/wishlists/pkg/httputil"
)

// IndexResponse describes the service at its root URL.
type IndexResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Index handles GET /
func Index(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		httputil.WriteData(w, http.StatusOK, IndexResponse{
			Service: ServiceName,
			Version: version,
			URL:     scheme + "://" + r.Host + "/wishlists",
		})
	}
}
