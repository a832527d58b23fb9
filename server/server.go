// Package server exposes the recommender, the diagnostic rules and the
// feedback store over a JSON HTTP API.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ezoic/plantreco/config"
	"github.com/ezoic/plantreco/feedback"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/recommend"
)

// Recommender predicts a plant for growing conditions.
// *recommend.Context implements it.
type Recommender interface {
	Recommend(q recommend.Query) (*recommend.Recommendation, error)
}

// FeedbackStore persists and summarises feedback.
// *feedback.Store implements it.
type FeedbackStore interface {
	Append(plante string, note int, commentaire string) (feedback.Record, error)
	Stats() (feedback.Stats, error)
}

// Server wires the HTTP routes to the recommender and the feedback store.
type Server struct {
	recommender Recommender
	feedback    FeedbackStore
	cfg         config.ServerConfig
	router      chi.Router
}

// New builds a Server. Both dependencies are required.
func New(recommender Recommender, store FeedbackStore, cfg config.ServerConfig) *Server {
	s := &Server{
		recommender: recommender,
		feedback:    store,
		cfg:         cfg,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Middleware order matters: RequestID first so every log line carries it,
	// Recoverer inside AccessLog so panics are reported as 500s.
	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitRequests,
				s.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(s.handleRateLimited),
			))
		}
		r.Post("/predict", s.handlePredict)
		r.Post("/diagnostic", s.handleDiagnostic)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/feedback/stats", s.handleFeedbackStats)
	})

	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
// within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return prErrors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Info().
			Str(log.ComponentKey, "server").
			Str("addr", ln.Addr().String()).
			Msg("HTTP server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if prErrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return prErrors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.GetLogger().Info().Str(log.ComponentKey, "server").Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return prErrors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !prErrors.Is(err, http.ErrServerClosed) {
		return prErrors.Wrap(err, "serve")
	}
	return nil
}
