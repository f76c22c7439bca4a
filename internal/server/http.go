package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/doc-catalog-backend/internal/auth"
	"github.com/lk2023060901/doc-catalog-backend/internal/auth/middleware"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/service"
	"github.com/lk2023060901/doc-catalog-backend/internal/conf"
	"github.com/lk2023060901/doc-catalog-backend/internal/data"
	apperrors "github.com/lk2023060901/doc-catalog-backend/internal/pkg/errors"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/metrics"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// 健康检查单项超时
const healthTimeout = 3 * time.Second

type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	d *data.Data,
	jwtManager *auth.JWTManager,
	catalogService *service.CatalogService,
) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	router.Use(middleware.CORS())
	router.Use(metrics.GinMiddleware())

	router.GET("/health", healthHandler(d))
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalJWTAuth(jwtManager))

	mw := service.RouteMiddlewares{
		RequireAuth: middleware.JWTAuth(jwtManager, log),
	}
	if rl := config.Server.UploadRateLimit; rl.MaxRequests > 0 && d != nil {
		mw.UploadLimit = middleware.RateLimiter(d.Redis, middleware.RateLimiterConfig{
			MaxRequests:   rl.MaxRequests,
			WindowSeconds: rl.WindowSeconds,
			Strategy:      rl.Strategy,
		}, log)
	}
	catalogService.RegisterRoutes(api, mw)

	return &HTTPServer{
		server: &http.Server{
			Addr:         config.Server.Addr(),
			Handler:      router,
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
		},
		router: router,
		logger: log.Named("http"),
	}
}

// Handler 供测试直接驱动路由
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// healthHandler 任一依赖不可用时返回 503，并列出各依赖状态
func healthHandler(d *data.Data) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d == nil {
			response.Success(c, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		checks := make(map[string]string)
		healthy := true
		for name, err := range d.HealthCheck(ctx) {
			if err != nil {
				healthy = false
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Code:    apperrors.ErrServiceUnavail,
				Message: apperrors.GetMessage(apperrors.ErrServiceUnavail),
				Data:    gin.H{"status": "degraded", "checks": checks},
			})
			return
		}
		response.Success(c, gin.H{
			"status": "ok",
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
