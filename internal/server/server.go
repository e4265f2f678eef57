package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	v1 "enrollboard/internal/api/v1"
	"enrollboard/internal/config"
	"enrollboard/internal/exporter"
	"enrollboard/internal/pipeline"
	"enrollboard/internal/render"
)

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	http     *http.Server
	runner   pipeline.Runner
	renderer *render.Renderer
	api      *v1.Handler
	logger   *zap.Logger
}

// NewServer 创建服务器；gatherer 为 nil 时不暴露 /metrics
func NewServer(cfg *config.AppConfig, runner pipeline.Runner, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	devMode := cfg.Server.DevMode
	var router *gin.Engine
	if devMode {
		// 开发模式：gin 自带请求日志
		router = gin.Default()
	} else {
		gin.SetMode(gin.ReleaseMode)
		router = gin.New()
		router.Use(gin.Recovery())
	}

	s := &Server{
		router:   router,
		runner:   runner,
		renderer: render.NewRenderer(cfg.Server.Title, cfg.Server.EChartsAssets),
		api:      v1.NewHandler(runner, exporter.NewExporter(cfg.Server.Title), logger),
		logger:   logger,
	}
	s.http = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes(gatherer)

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// API 路由
	api := s.router.Group("/api")
	{
		s.api.RegisterRoutes(api)
	}

	// 首页：每次请求重新拉取数据
	s.router.GET("/", s.dashboard)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// dashboard 渲染仪表盘；流水线失败时只显示错误状态条
func (s *Server) dashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")

	report, err := s.runner.Run(c.Request.Context())
	if err != nil {
		if rerr := s.renderer.Error(c.Writer, pipeline.UserMessage(err)); rerr != nil {
			s.logger.Error("Render error page failed", zap.Error(rerr))
		}
		return
	}

	if err := s.renderer.Dashboard(c.Writer, report); err != nil {
		s.logger.Error("Render dashboard failed", zap.String("run_id", report.RunID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		_ = s.renderer.Error(c.Writer, pipeline.UserMessage(err))
	}
}

// Handler 返回路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，Shutdown 后返回 nil
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有监听上提供服务
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
