package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/infra/auth/oidc"
	"coffeeshop/internal/infra/auth/rbac"
	"coffeeshop/internal/infra/db"
	"coffeeshop/internal/infra/drinkmem"
	"coffeeshop/internal/infra/policyopa"
	"coffeeshop/internal/infra/ratelimit"
	"coffeeshop/internal/observability/logger"
	"coffeeshop/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	drinks  *usecase.DrinkService
	metrics *metrics

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	jwksClient    *http.Client
	authInitErr   error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the drink repository from store (or the in-memory fallback
// when no database is configured) and builds auth from cfg.
func NewServer(cfg config.Config, store *db.Store) *Server {
	var repo usecase.DrinkRepository
	if store.Enabled() {
		repo = db.NewDrinkRepository(store.DB)
	} else {
		repo = drinkmem.New()
	}
	s := newServer(cfg, repo, nil)
	s.store = store
	s.initRateLimit(nil)
	s.initAuth()
	s.routes()
	return s
}

type ServerDeps struct {
	Drinks        usecase.DrinkRepository
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	Registry      *prometheus.Registry
	// JWKSClient replaces the HTTP client used to fetch signing keys.
	JWKSClient *http.Client
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	repo := deps.Drinks
	if repo == nil {
		repo = drinkmem.New()
	}
	s := newServer(cfg, repo, deps.Registry)
	s.authenticator = deps.Authenticator
	s.authorizer = deps.Authorizer
	s.jwksClient = deps.JWKSClient
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func newServer(cfg config.Config, repo usecase.DrinkRepository, registry *prometheus.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	s := &Server{
		cfg:     cfg,
		r:       r,
		drinks:  usecase.NewDrinkService(repo),
		metrics: newMetrics(registry),
	}
	r.Use(s.requestContext(), gin.CustomRecovery(s.handlePanic))
	return s
}

func (s *Server) initAuth() {
	if s.authenticator == nil {
		authenticator, err := oidc.NewAuthenticator(s.cfg,
			oidc.WithHTTPClient(s.jwksClient),
			oidc.WithRefreshObserver(s.metrics.observeJWKSRefresh),
		)
		if err != nil {
			s.authInitErr = err
			return
		}
		s.authenticator = authenticator
	}
	if s.authorizer != nil {
		return
	}
	if s.cfg.AuthzPolicyFile == "" {
		s.authorizer = rbac.NewAuthorizer()
		return
	}
	engine, err := policyopa.NewEngineFromFile(context.Background(), s.cfg.AuthzPolicyFile)
	if err != nil {
		s.authInitErr = err
		return
	}
	s.authorizer = rbac.NewPolicyAuthorizer(engine)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	s.rateLimiter = override
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisOptions{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			if err == nil {
				s.rateLimiter = limiter
			} else {
				logger.L().Warn("redis rate limiter unavailable; using memory", logger.Err(err))
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryOptions{MaxKeys: s.cfg.RateLimitMaxKeys})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.store.Enabled() {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})
	s.r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	s.r.GET("/drinks", s.requiresAuth(domain.PermGetDrinks), s.rateLimit("drinks:list"), s.handleListDrinks)
	s.r.GET("/drinks-detail", s.requiresAuth(domain.PermGetDrinksDetail), s.rateLimit("drinks:detail"), s.handleListDrinkDetails)
	s.r.POST("/drinks", s.requiresAuth(domain.PermPostDrinks), s.rateLimit("drinks:create"), s.handleCreateDrink)
	s.r.PATCH("/drinks/:id", s.requiresAuth(domain.PermPatchDrinks), s.rateLimit("drinks:update"), s.handleUpdateDrink)
	s.r.DELETE("/drinks/:id", s.requiresAuth(domain.PermDeleteDrinks), s.rateLimit("drinks:delete"), s.handleDeleteDrink)

	s.r.NoRoute(s.handleNoRoute)
	s.r.NoMethod(s.handleNoMethod)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases the rate limiter's connections.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeRateLimiter()
	if s.authInitErr != nil {
		return s.authInitErr
	}
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) closeRateLimiter() {
	closer, ok := s.rateLimiter.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.L().Warn("close rate limiter", logger.Err(err))
	}
}
