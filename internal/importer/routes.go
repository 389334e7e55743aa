package importer

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Parsing a full export is not cheap, so uploads get a tighter per-IP
// budget than the global limit.
const uploadRateLimit = 10
const uploadRateWindow = time.Minute

// MountRoutes registers the import endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(uploadRateLimit, uploadRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/", h.Upload)
	})
	r.Post("/{token}/confirm", h.Confirm)
	r.Delete("/{token}", h.Discard)
}
