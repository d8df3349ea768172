// Package api - Thin HTTP layer over the quote engine.
// Handlers decode, normalize, delegate and encode. They never price anything themselves.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"motor-tariff/core/catalog"
	"motor-tariff/core/input"
	"motor-tariff/core/policy"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/logging"
)

// PolicyStore persists issued policies. db.PolicyStore satisfies it.
type PolicyStore interface {
	Create(ctx context.Context, r *policy.Record) error
	Get(ctx context.Context, id string) (*policy.Record, error)
}

// Deps are the collaborators a server needs. Policies and Gatherer are optional.
type Deps struct {
	Engine     *quote.Engine
	Holder     *tariff.Holder
	Normalizer *input.Normalizer
	Catalog    *catalog.Catalog
	Policies   PolicyStore
	Gatherer   prometheus.Gatherer
	// CORSOrigins enables cross-origin requests from these origins; empty disables CORS
	CORSOrigins []string
	Version     string
	Logger      *zap.Logger
	Clock       func() time.Time
}

// Server is the API server
type Server struct {
	deps   Deps
	router *gin.Engine
	logger *zap.Logger
	audit  AuditLogger
	now    func() time.Time
}

// NewServer builds the router
func NewServer(deps Deps) *Server {
	if deps.Normalizer == nil {
		deps.Normalizer = input.DefaultNormalizer()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Named("api")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	s := &Server{
		deps:   deps,
		router: gin.New(),
		logger: logger,
		audit:  NewZapAuditLogger(logger.Named("audit")),
		now:    now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(RequestID(), AccessLog(s.logger), Recovery(s.logger))
	if len(s.deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.deps.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	insurance := r.Group("/api/insurance")
	insurance.POST("/calculate", s.handleCalculate)
	insurance.GET("/options", s.handleOptions)

	tariffs := r.Group("/api/tariffs")
	tariffs.GET("/active", s.handleActiveTable)
	tariffs.GET("/rows/:kind/:code", s.handleRow)

	policies := r.Group("/api/policies")
	policies.POST("", s.handleIssuePolicy)
	policies.GET("/:id", s.handleGetPolicy)

	r.GET("/health", s.handleHealth)
	r.GET("/version", s.handleVersion)
	if s.deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains for up to shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr), zap.String("version", s.deps.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
