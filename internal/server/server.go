package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/brahma/api-tracker/internal/config"
	"github.com/brahma/api-tracker/internal/handler"
	"github.com/brahma/api-tracker/internal/healthcheck"
	"github.com/brahma/api-tracker/internal/logger"
	"github.com/brahma/api-tracker/internal/metrics"
	"github.com/brahma/api-tracker/internal/middleware"
	"github.com/brahma/api-tracker/internal/ratelimit"
	"github.com/brahma/api-tracker/internal/repository"
	"github.com/brahma/api-tracker/internal/service"
	"github.com/brahma/api-tracker/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Everything the server needs from the outside. Database is nil for the
// in-memory driver and Redis is nil when not configured.
type Deps struct {
	Store    service.HitStore
	Database *storage.Database
	Redis    *storage.RedisClient
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

type Server struct {
	router      *gin.Engine
	config      *config.Config
	deps        Deps
	logger      *zap.Logger
	hitService  *service.HitService
	authService *service.AuthService
	health      *healthcheck.Checker
	httpServer  *http.Server
}

func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: hit store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s := &Server{
		router: router,
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
		hitService: service.NewHitService(deps.Store, deps.Logger.Named("hits"),
			service.WithMetrics(deps.Metrics)),
	}

	if cfg.Auth.Enabled {
		if deps.Database == nil {
			return nil, errors.New("server: admin auth needs a database driver")
		}
		s.authService = service.NewAuthService(
			repository.NewUserRepository(deps.Database),
			cfg.Auth.JWTSecret,
			cfg.Auth.TokenExpiryHours,
		)
	}

	s.health = healthcheck.NewChecker(s.healthChecks(), healthcheck.Config{}, deps.Logger.Named("health"))
	s.health.CheckNow(context.Background())

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.logger.Named("http")))
	s.router.Use(middleware.ErrorHandler(s.logger))
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.CORS(s.config.Server.CORSOrigins))
	if s.config.Metrics.Enabled {
		s.router.Use(middleware.Metrics(s.deps.Metrics))
	}
}

func (s *Server) setupRoutes() {
	hits := handler.NewHitHandler(s.hitService)

	s.router.GET("/", hits.Home)
	s.router.GET("/health", handler.NewHealthHandler(s.health).Health)

	track := []gin.HandlerFunc{hits.Track}
	if s.config.RateLimit.Enabled {
		limiter := ratelimit.NewLimiter(s.deps.Redis, s.config.RateLimit)
		s.logger.Info("rate limiting /track",
			zap.String("algorithm", s.config.RateLimit.Algorithm),
			zap.Bool("redis", s.deps.Redis != nil),
			zap.Int("requests_per_minute", limiter.Limit()),
		)
		track = append([]gin.HandlerFunc{middleware.RateLimit(limiter, s.hitService, s.logger)}, track...)
	}
	for _, method := range service.TrackMethods {
		s.router.Handle(method, "/track", track...)
	}

	api := s.router.Group("/api")
	if s.authService != nil {
		s.router.POST("/auth/login", handler.NewAuthHandler(s.authService).Login)
		api.Use(middleware.RequireAuth(s.authService))
	}
	api.GET("/hits", hits.List)
	api.GET("/hits/stats", hits.Stats)

	if s.config.Metrics.Enabled {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.deps.Metrics.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) healthChecks() map[string]healthcheck.Pinger {
	checks := make(map[string]healthcheck.Pinger)
	if s.deps.Database != nil {
		checks["database"] = s.deps.Database
	}
	if s.deps.Redis != nil {
		checks["redis"] = s.deps.Redis
	}
	return checks
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.ReadTimeout,
	}

	s.health.Start(context.Background())

	s.logger.Info("starting api tracker",
		zap.String("addr", addr),
		zap.String("environment", s.config.Server.Environment),
	)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.health.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
