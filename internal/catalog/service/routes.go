package service

import "github.com/gin-gonic/gin"

// RouteMiddlewares 路由级中间件；为 nil 的项跳过
type RouteMiddlewares struct {
	// RequireAuth 用于 /recent 下必须登录的接口
	RequireAuth gin.HandlerFunc
	// UploadLimit 作用于上传与替换内容
	UploadLimit gin.HandlerFunc
}

// RegisterRoutes 注册文件目录路由
func (s *CatalogService) RegisterRoutes(r *gin.RouterGroup, mw RouteMiddlewares) {
	files := r.Group("/files")
	{
		files.POST("", chain(mw.UploadLimit, s.UploadFile)...)
		files.GET("", s.ListFiles)
		files.GET("/all", s.ListAllFiles)
		files.GET("/:id", s.GetFile)
		files.PUT("/:id/content", chain(mw.UploadLimit, s.ReplaceContent)...)
		files.PATCH("/:id", s.UpdateMetadata)
		files.DELETE("/:id", s.DeleteFile)
		files.GET("/:id/download", s.DownloadFile)
		files.GET("/:id/url", s.DownloadURL)
	}

	stats := r.Group("/stats")
	{
		stats.GET("/storage", s.GetStorageStats)
		stats.POST("/storage/refresh", s.RefreshStorageStats)
	}

	if s.recent == nil {
		return
	}
	recent := r.Group("/recent")
	if mw.RequireAuth != nil {
		recent.Use(mw.RequireAuth)
	}
	{
		recent.GET("", s.ListRecent)
		recent.POST("/:id", s.RecordView)
		recent.DELETE("", s.ClearRecent)
	}
}

func chain(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{mw, h}
}
