// Package api serves the directory over HTTP.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/provider-directory/internal/directory"
	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/query"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Directory is the service behind the routes.
type Directory interface {
	Filter(ctx context.Context, c query.Criteria) (*directory.Page, error)
	GetUnapproved(ctx context.Context, page int) (*directory.Page, error)
	FilterFull(ctx context.Context, f query.AdminFilter) (*directory.Page, error)
	AddEntry(ctx context.Context, e *entry.Entry) (string, error)
	GetEntry(ctx context.Context, id string) (*entry.Entry, error)
	Approve(ctx context.Context, id, moderatorID string, approve bool) error
	Update(ctx context.Context, id string, edit *entry.Entry) error
	Block(ctx context.Context, id string, blocked bool) error
	Delete(ctx context.Context, id string) error
	UpdateGeo(ctx context.Context, id string) error
	FindGeoLocation(ctx context.Context, text string) []geo.Place
	FindGeoName(ctx context.Context, p geo.Point) []geo.Place
	Export(ctx context.Context, w io.Writer, format string, force bool) (bool, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the router.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	// Health is checked by GET /health when set.
	Health Pinger
}

type handler struct {
	dir    Directory
	health Pinger
}

// NewRouter builds the HTTP handler for dir.
func NewRouter(dir Directory, opts Options) http.Handler {
	h := &handler{dir: dir, health: opts.Health}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(authenticate([]byte(opts.JWTSecret)))

	r.Get("/health", h.checkHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/geodata", h.findGeoLocation)
	r.Get("/geodata/name", h.findGeoName)

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.filter)
		r.Post("/", h.addEntry)

		r.With(requireModerator).Get("/unapproved", h.unapproved)
		r.With(requireAdmin).Post("/full", h.filterFull)
		r.With(requireAdmin).Get("/backup", h.backup)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getEntry)
			r.With(requireModerator).Delete("/", h.deleteEntry)
			r.With(requireModerator).Patch("/approve", h.approve)
			r.With(requireAdmin).Patch("/edit", h.edit)
			r.With(requireAdmin).Patch("/block", h.block)
			r.With(requireAdmin).Patch("/updateGeo", h.updateGeo)
		})
	})

	return r
}
