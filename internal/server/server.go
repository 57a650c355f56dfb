package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/happybase/portal/internal/analytics"
	"github.com/happybase/portal/internal/app"
	appdomain "github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/authorization"
	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/identity"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/identity/session"
	"github.com/happybase/portal/internal/lock"
	"github.com/happybase/portal/internal/merchant"
	merchantdomain "github.com/happybase/portal/internal/merchant/domain"
	"github.com/happybase/portal/internal/observability"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	obsmetrics "github.com/happybase/portal/internal/observability/metrics"
	obstracing "github.com/happybase/portal/internal/observability/tracing"
	"github.com/happybase/portal/internal/paymentprovider"
	"github.com/happybase/portal/internal/portal"
	portaldomain "github.com/happybase/portal/internal/portal/domain"
	"github.com/happybase/portal/internal/product"
	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/happybase/portal/internal/provisioning"
	"github.com/happybase/portal/internal/ratelimit"
	"github.com/happybase/portal/internal/webhook"
	webhookservice "github.com/happybase/portal/internal/webhook/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	identity.Module,
	analytics.Module,
	lock.Module,
	ratelimit.Module,
	paymentprovider.Module,
	provisioning.Module,
	merchant.Module,
	product.Module,
	app.Module,
	portal.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// WebhookHandler verifies and dispatches provider webhooks.
type WebhookHandler interface {
	HandleIdentity(ctx context.Context, payload []byte, headers http.Header) error
	HandlePayments(ctx context.Context, payload []byte, headers http.Header) error
	HandleConnect(ctx context.Context, payload []byte, headers http.Header) error
}

func NewEngine(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(CORS(cfg.CORSAllowedOrigins))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, cfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	verifier   SessionVerifier
	directory  identitydomain.Directory
	authzSvc   authorization.Service
	merchants  merchantdomain.Service
	apps       appdomain.Service
	products   productdomain.Service
	portals    portaldomain.Service
	webhooks   WebhookHandler
	limiter    RateLimiter
	portalPage *template.Template
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Verifier    *session.Verifier
	Directory   identitydomain.Directory
	AuthzSvc    authorization.Service
	MerchantSvc merchantdomain.Service
	AppSvc      appdomain.Service
	ProductSvc  productdomain.Service
	PortalSvc   portaldomain.Service
	Webhooks    *webhookservice.Service
	Limiter     *ratelimit.Limiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("http.server"),
		verifier:   p.Verifier,
		directory:  p.Directory,
		authzSvc:   p.AuthzSvc,
		merchants:  p.MerchantSvc,
		apps:       p.AppSvc,
		products:   p.ProductSvc,
		portals:    p.PortalSvc,
		webhooks:   p.Webhooks,
		limiter:    p.Limiter,
		portalPage: portalTemplate,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.Use(s.RouteGate())

	s.registerHealthRoutes()
	s.registerWebhookRoutes()
	s.registerAPIRoutes()
	s.registerPortalRoutes()
	s.registerFallback()
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/api/webhooks")
	hooks.POST("/clerk", s.HandleClerkWebhook)
	hooks.POST("/stripe", s.HandleStripeWebhook)
	hooks.POST("/stripe_connect", s.HandleStripeConnectWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.SessionRequired())

	// -------- Merchant --------
	api.POST("/connect_links/generate", s.OrgRequired(), s.authorize(authorization.ObjectMerchant, authorization.ActionMerchantView), s.rateLimit(authorization.ObjectMerchant), s.GenerateConnectLink)
	api.GET("/connect_links/refresh", s.OrgRequired(), s.authorize(authorization.ObjectMerchant, authorization.ActionMerchantRefresh), s.RefreshConnectLink)
	api.GET("/merchant", s.OrgRequired(), s.authorize(authorization.ObjectMerchant, authorization.ActionMerchantView), s.GetMerchant)

	// -------- Apps --------
	api.GET("/apps/catalog", s.ListAppCatalog)
	api.GET("/apps", s.authorize(authorization.ObjectApp, authorization.ActionAppView), s.ListApps)
	api.POST("/apps", s.authorize(authorization.ObjectApp, authorization.ActionAppCreate), s.CreateApp)
	api.GET("/apps/:id", s.authorize(authorization.ObjectApp, authorization.ActionAppView), s.GetApp)
	api.DELETE("/apps/:id", s.authorize(authorization.ObjectApp, authorization.ActionAppDelete), s.DeleteApp)

	// -------- Products --------
	api.GET("/products", s.OrgRequired(), s.authorize(authorization.ObjectProduct, authorization.ActionProductView), s.ListProducts)
	api.POST("/products", s.OrgRequired(), s.authorize(authorization.ObjectProduct, authorization.ActionProductCreate), s.rateLimit(authorization.ObjectProduct), s.CreateProduct)
	api.POST("/products/create", s.OrgRequired(), s.authorize(authorization.ObjectProduct, authorization.ActionProductCreate), s.rateLimit(authorization.ObjectProduct), s.CreateProduct)
	api.GET("/products/:id", s.OrgRequired(), s.authorize(authorization.ObjectProduct, authorization.ActionProductView), s.GetProduct)

	// -------- Portals --------
	api.POST("/portals", s.OrgRequired(), s.authorize(authorization.ObjectPortal, authorization.ActionPortalCreate), s.rateLimit(authorization.ObjectPortal), s.BroadcastPortal)
	api.POST("/portals/create", s.OrgRequired(), s.authorize(authorization.ObjectPortal, authorization.ActionPortalCreate), s.rateLimit(authorization.ObjectPortal), s.BroadcastPortal)
}

func (s *Server) registerPortalRoutes() {
	s.engine.GET("/api/portals/:id", s.GetPortalView)
	s.engine.GET("/portal/:id", s.RenderPortal)
	s.engine.GET("/portal/:id/access/:token", s.RenderPortalAccess)
}

func (s *Server) registerFallback() {
	uiDir := strings.TrimSpace(s.cfg.UIDir)
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || !dirExists(uiDir) {
			AbortWithError(c, ErrNotFound)
			return
		}

		// static assets (vite)
		if fileExists(uiDir, c.Request.URL.Path) {
			c.File(filepath.Join(uiDir, filepath.Clean(c.Request.URL.Path)))
			return
		}

		// SPA fallback
		c.File(filepath.Join(uiDir, "index.html"))
	})
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || strings.HasPrefix(clean, "..") {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
