// internal/httpapi/router.go
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grccore/internal/asset"
	"grccore/internal/control"
)

// Options collects the dependencies of the HTTP surface.
type Options struct {
	Log          *zap.Logger
	Assets       *asset.Handler
	Controls     *control.Handler
	APITokenHash string
	APITokenSalt string
	WriteLimiter *rate.Limiter
}

// NewRouter assembles the server's routes and middleware.
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(opts.Log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireToken(opts.APITokenHash, opts.APITokenSalt))
		if opts.WriteLimiter != nil {
			r.Use(WriteLimit(opts.WriteLimiter))
		}
		r.Mount("/assets", opts.Assets.Routes())
		r.Mount("/controls", opts.Controls.Routes())
	})

	return r
}
