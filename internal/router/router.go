package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leca/photex/internal/api"
	"github.com/leca/photex/internal/catalog"
	"github.com/leca/photex/internal/config"
	"github.com/leca/photex/internal/handler"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	Catalog *catalog.Service
	Config  *config.Config
	Router  chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(svc *catalog.Service, cfg *config.Config) *Server {
	s := &Server{Catalog: svc, Config: cfg}

	h := &handler.Handler{
		Catalog: svc,
		Config:  cfg,
	}

	r := chi.NewRouter()

	// CORS must run first to answer preflight OPTIONS requests.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Unauthenticated endpoints.
	r.Get("/health", s.Health)
	r.Get("/metadata/editable", h.EditableTags)
	r.Get("/objects/*", h.GetObject)

	r.Route("/accounts/{owner_id}", func(r chi.Router) {
		r.Use(api.AuthMiddleware(cfg.AuthToken))
		r.Use(api.OwnerIDMiddleware)

		r.Get("/catalogues", h.ListCatalogues)
		r.Post("/catalogues", h.AddCatalogue)
		r.Get("/catalogues/{catalogue_id}", h.GetCatalogue)
		r.Delete("/catalogues/{catalogue_id}", h.DeleteCatalogue)

		r.Get("/images", h.ListImages)
		r.Post("/images", h.UploadImage)
		r.Get("/images/{image_id}", h.GetImage)
		r.Put("/images/{image_id}", h.UpdateImage)
		r.Delete("/images/{image_id}", h.DeleteImage)
		r.Patch("/images/{image_id}/metadata", h.UpdateMetadata)
		r.Get("/images/{image_id}/thumbnail", h.GetThumbnail)
	})

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Warn("failed to encode health response", "error", err)
	}
}
