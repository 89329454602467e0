// Package web serves the explorer: the map page, the table page and the
// JSON API behind them.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/boundary"
	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/metrics"
	"github.com/ridoystarlord/redatlas/query"
	"github.com/ridoystarlord/redatlas/table"
	"github.com/ridoystarlord/redatlas/utils"
)

// Deps are the components a Server is built from. Gatherer may be nil, in
// which case /metrics is not mounted.
type Deps struct {
	Config     *config.Config
	DB         *database.DB
	Engine     *query.Engine
	Catalog    *table.Catalog
	Boundaries *boundary.Fetcher
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Log        *zap.Logger
}

// Server handles the web interface.
type Server struct {
	cfg        *config.Config
	db         *database.DB
	engine     *query.Engine
	catalog    *table.Catalog
	boundaries *boundary.Fetcher
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	log        *zap.Logger
	pages      *template.Template
}

// New returns a Server for d.
func New(d Deps) *Server {
	return &Server{
		cfg:        d.Config,
		db:         d.DB,
		engine:     d.Engine,
		catalog:    d.Catalog,
		boundaries: d.Boundaries,
		metrics:    metrics.OrDiscard(d.Metrics),
		gatherer:   d.Gatherer,
		log:        utils.OrNop(d.Log),
		pages:      parsePages(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/tables", s.handleTablesPage)
	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/regions", s.handleRegions)
		r.Get("/boundaries", s.handleBoundaries)
		r.Get("/tables", s.handleTables)
		r.Get("/tables/{name}", s.handleTableData)
		r.Get("/tables/{name}/export", s.handleExport)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("Serving explorer", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("Shutting down explorer")
		return srv.Shutdown(shutdownCtx)
	}
}
