package server

import (
	"context"
	"net/http"

	"clip-forge/app/config"
	"clip-forge/app/database"
	"clip-forge/app/handler"
	"clip-forge/app/logger"
	"clip-forge/app/middleware"
	"clip-forge/app/render"
	"clip-forge/app/service"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	renderService   *service.RenderService
	mediaWatch      *service.MediaWatchService
	cleanupService  *service.CleanupService
	timelineService *service.TimelineService
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()
	db := database.GetDB()

	registry := service.NewMemoryJobRegistry()
	renderer := render.NewExecRenderer(cfg.Render.RendererBin, cfg.Render.RendererEntry, cfg.Render.TempDir, log)

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:          cfg,
		Logger:          log,
		renderService:   service.NewRenderService(db, cfg, log, registry, renderer),
		mediaWatch:      service.NewMediaWatchService(cfg, db, log),
		cleanupService:  service.NewCleanupService(cfg, db, log, registry),
		timelineService: service.NewTimelineService(db, log),
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动媒体导入监控
	if s.Config.Media.WatchEnabled {
		if err := s.mediaWatch.Start(); err != nil {
			s.Logger.Errorf("启动媒体监控失败: %v", err)
		}
	}

	// 启动定时清理
	if err := s.cleanupService.Start(); err != nil {
		s.Logger.Errorf("启动定时清理失败: %v", err)
	}

	return s.http.ListenAndServe()
}

// Shutdown 关闭服务器
func (s *Server) Shutdown(ctx context.Context) error {
	s.mediaWatch.Stop()
	s.cleanupService.Stop()
	s.renderService.Close()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	db := database.GetDB()

	// 创建处理器实例
	authHandler := handler.NewAuthHandler(s.Config)
	episodeHandler := handler.NewEpisodeHandler(db)
	timelineHandler := handler.NewTimelineHandler(s.timelineService)
	renderHandler := handler.NewRenderHandler(s.renderService)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/me", authHandler.Me)

		// 节目与素材
		episodes := protected.Group("/episodes")
		{
			episodes.POST("", episodeHandler.Create)
			episodes.GET("", episodeHandler.List)
			episodes.GET("/:id", episodeHandler.Get)
			episodes.POST("/:id/sources", episodeHandler.CreateSource)

			// 片段
			episodes.POST("/:id/clips", episodeHandler.CreateClip)
			episodes.GET("/:id/clips", episodeHandler.ListClips)
			episodes.PUT("/:id/clips/:clipId", episodeHandler.UpdateClip)
			episodes.GET("/:id/clips/:clipId/props", renderHandler.PreviewProps)

			// 时间线
			episodes.GET("/:id/timeline", timelineHandler.Get)
			episodes.PUT("/:id/timeline", timelineHandler.Save)
			episodes.POST("/:id/timeline/init", timelineHandler.Initialize)
		}

		// 渲染
		renderGroup := protected.Group("/render")
		{
			renderGroup.POST("", renderHandler.Render)
			renderGroup.GET("/:jobId/status", renderHandler.Status)
			renderGroup.GET("/artifacts/:episodeId", renderHandler.ListArtifacts)
			renderGroup.DELETE("/artifacts/:id", renderHandler.DeleteArtifact)
		}
	}
}
