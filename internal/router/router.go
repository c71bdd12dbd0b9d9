package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-municipio-insights/internal/api/city"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/report"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/selection"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CityHandler      *city.Handler
	SelectionHandler *selection.HandlerImpl
	// ReportHandler is nil when the Postgres archive is disabled.
	ReportHandler  *report.HandlerImpl
	SessionAuth    func(http.Handler) http.Handler
	AllowedOrigins []string
}

// SetupRouter builds the API routes. Server-wide middleware (request id,
// logging, recoverer) is applied by the caller.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			r.Get("/states", cfg.CityHandler.ListStates)
			r.Get("/states/{uf}/municipalities", cfg.CityHandler.ListMunicipalities)
			r.Post("/sessions", cfg.SelectionHandler.CreateSession)
			if cfg.ReportHandler != nil {
				r.Get("/reports", cfg.ReportHandler.ListReports)
			}
		})

		// Session routes need the token issued by POST /sessions
		r.Group(func(r chi.Router) {
			r.Use(cfg.SessionAuth)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.SelectionHandler.GetSession)
				r.Delete("/", cfg.SelectionHandler.DeleteSession)
				r.Put("/state", cfg.SelectionHandler.SelectState)
				r.Put("/municipality", cfg.SelectionHandler.SelectMunicipality)
				r.Put("/filter", cfg.SelectionHandler.SetFilter)
				r.Post("/enrichments/{kind}", cfg.SelectionHandler.RequestEnrichment)
				r.Post("/ideas/{ideaID}/prompt", cfg.SelectionHandler.RequestDeveloperPrompt)
				r.Get("/export.csv", cfg.SelectionHandler.ExportCSV)
				r.Get("/export/prompt", cfg.SelectionHandler.ExportDeveloperPrompt)
			})
		})
	})

	return r
}
