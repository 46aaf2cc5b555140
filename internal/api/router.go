package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/venter/internal/api/middleware"
	"github.com/kiranshivaraju/venter/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	ListArtifacts    http.HandlerFunc
	GetArtifact      http.HandlerFunc
	Result           http.HandlerFunc
	Statistics       http.HandlerFunc
	Chart            http.HandlerFunc
	Table            http.HandlerFunc
	SaveCorrections  http.HandlerFunc
	DomainCategories http.HandlerFunc
	WordCloud        http.HandlerFunc
	Export           http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/artifacts", orNotImplemented(deps.ListArtifacts))

		r.Route("/api/v1/artifacts/{artifactID}", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetArtifact))
			r.Get("/result", orNotImplemented(deps.Result))
			r.Get("/statistics", orNotImplemented(deps.Statistics))
			r.Get("/chart", orNotImplemented(deps.Chart))
			r.Get("/table", orNotImplemented(deps.Table))
			r.Post("/corrections", orNotImplemented(deps.SaveCorrections))
			r.Get("/domains/{domain}/categories", orNotImplemented(deps.DomainCategories))
			r.Get("/wordcloud", orNotImplemented(deps.WordCloud))
			r.Get("/export", orNotImplemented(deps.Export))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
