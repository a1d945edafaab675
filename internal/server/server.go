// Package server exposes the engine over HTTP. Handlers bind and validate
// requests, delegate to domain services, and serialize their views; all
// policy lives below this package.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/config"
	entitlementdomain "github.com/voxpractice/cadence/internal/entitlement/domain"
	"github.com/voxpractice/cadence/internal/observability/metrics"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the HTTP surface into the application.
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`

	Accounts     accountdomain.Service
	Entitlements entitlementdomain.Service
	Usage        usagedomain.Service
	Orgs         orgdomain.Service
	Tiers        tierdomain.Service
	Audit        auditdomain.Service
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	accounts     accountdomain.Service
	entitlements entitlementdomain.Service
	usage        usagedomain.Service
	orgs         orgdomain.Service
	tiers        tierdomain.Service
	audit        auditdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		metrics:      p.Metrics,
		accounts:     p.Accounts,
		entitlements: p.Entitlements,
		usage:        p.Usage,
		orgs:         p.Orgs,
		tiers:        p.Tiers,
		audit:        p.Audit,
	}
}

// Router builds the gin engine with middleware and all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(metrics.GinMiddleware(s.metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": s.cfg.AppName,
			"version": s.cfg.AppVersion,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/tiers", s.ListTiers)

		v1.POST("/users", s.CreateProfile)
		v1.GET("/users/:id", s.GetProfile)
		v1.GET("/users/:id/entitlement", s.ResolveEntitlement)
		v1.POST("/users/:id/timezone", s.StageTimezone)
		v1.POST("/users/:id/timezone/promote", s.PromoteTimezone)
		v1.POST("/users/:id/bonus", s.GrantBonus)

		v1.POST("/sessions", s.RecordSession)
		v1.GET("/sessions", s.ListSessions)
		v1.POST("/scores", s.RecordScore)

		v1.POST("/orgs", s.CreateOrg)
		v1.GET("/orgs/:id", s.GetOrg)
		v1.GET("/orgs/:id/usage-billing", s.OrgUsageBilling)
		v1.PATCH("/orgs/:id/soft-limits", s.UpdateSoftLimits)
		v1.POST("/orgs/:id/soft-limits/:percent/notified", s.MarkSoftLimitNotified)

		v1.GET("/audit-facts", s.ListAuditFacts)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Error("request", fields...)
		} else {
			s.log.Info("request", fields...)
		}
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
}
