// Package api exposes the review analysis service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Comparator produces a comparison across analyzed products.
type Comparator interface {
	Compare(ctx context.Context, products []model.ProductAnalysis) (*model.ComparisonPayload, error)
}

// Server holds the HTTP handler dependencies.
type Server struct {
	store      store.Store
	runner     *pipeline.Runner
	comparator Comparator
	cfg        config.ServerConfig
}

func NewServer(st store.Store, runner *pipeline.Runner, cmp Comparator, cfg config.ServerConfig) *Server {
	return &Server{
		store:      st,
		runner:     runner,
		comparator: cmp,
		cfg:        cfg,
	}
}

// Handler builds the chi router with CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/products", s.handleCreateProduct)
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{productID}", s.handleGetProduct)
		r.Post("/products/{productID}/analyze", s.handleAnalyzeProduct)
		r.Get("/products/{productID}/status", s.handleProductStatus)
		r.Post("/compare", s.handleCompare)
		r.Get("/compare/{comparisonID}", s.handleGetComparison)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
