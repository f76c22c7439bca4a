package service

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	apperrors "github.com/lk2023060901/doc-catalog-backend/internal/pkg/errors"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
)

// GetStorageStats GET /stats/storage，立即返回当前快照
func (s *CatalogService) GetStorageStats(c *gin.Context) {
	response.Success(c, toStatsResponse(s.stats.Read(c.Request.Context())))
}

// RefreshStorageStats POST /stats/storage/refresh
// 默认只提交后台重算；?sync=true 时同步扫描并返回新快照
func (s *CatalogService) RefreshStorageStats(c *gin.Context) {
	if c.Query("sync") == "true" {
		if _, err := s.stats.Recompute(c.Request.Context()); err != nil {
			if errors.Is(err, biz.ErrRecomputeInProgress) {
				handleError(c, err)
				return
			}
			response.HandleError(c, apperrors.Wrap(err, apperrors.ErrCatalogStatsUnavailable))
			return
		}
		response.Success(c, toStatsResponse(s.stats.Read(c.Request.Context())))
		return
	}

	scheduled := s.stats.Refresh()
	response.Accepted(c, gin.H{"scheduled": scheduled})
}
