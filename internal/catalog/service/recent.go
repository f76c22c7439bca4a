package service

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/doc-catalog-backend/internal/auth/middleware"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
	"github.com/samber/lo"
)

// ListRecent GET /recent?limit=
func (s *CatalogService) ListRecent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "login required")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handleError(c, &biz.ValidationError{Field: "limit", Reason: "must be an integer"})
			return
		}
		limit = n
	}

	files, err := s.recent.List(c.Request.Context(), userID, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items": lo.Map(files, func(f biz.RecentFile, _ int) *RecentFileResponse {
			return &RecentFileResponse{FileResponse: toFileResponse(f.File), ViewedAt: f.ViewedAt}
		}),
	})
}

// RecordView POST /recent/:id
func (s *CatalogService) RecordView(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "login required")
		return
	}
	if err := s.recent.Record(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// ClearRecent DELETE /recent
func (s *CatalogService) ClearRecent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "login required")
		return
	}
	if err := s.recent.Clear(c.Request.Context(), userID); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
