package service

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	apperrors "github.com/lk2023060901/doc-catalog-backend/internal/pkg/errors"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
)

// toAppError 把领域错误映射为业务错误码；存储与元数据错误的细节只进日志
func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, biz.ErrFileNotFound):
		return apperrors.Wrap(err, apperrors.ErrCatalogFileNotFound)
	case errors.Is(err, biz.ErrValidation):
		if biz.FieldOf(err) == "cursor" {
			return apperrors.Wrap(err, apperrors.ErrCatalogInvalidCursor)
		}
		return apperrors.Wrap(err, apperrors.ErrCatalogInvalidParams, err.Error())
	case errors.Is(err, biz.ErrInvalidTransition):
		return apperrors.Wrap(err, apperrors.ErrCatalogInvalidStatus, err.Error())
	case errors.Is(err, biz.ErrUnsupportedFileType):
		return apperrors.Wrap(err, apperrors.ErrCatalogInvalidFileType)
	case errors.Is(err, biz.ErrFileTooLarge):
		return apperrors.Wrap(err, apperrors.ErrCatalogFileTooLarge)
	case errors.Is(err, biz.ErrStorageWrite), errors.Is(err, biz.ErrStorageRead):
		return apperrors.Wrap(err, apperrors.ErrCatalogStorageFailed)
	case errors.Is(err, biz.ErrMetadata):
		return apperrors.Wrap(err, apperrors.ErrCatalogMetadataFailed)
	case errors.Is(err, biz.ErrRecomputeInProgress):
		return apperrors.Wrap(err, apperrors.ErrConflict, "a recompute is already running")
	default:
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
}

func handleError(c *gin.Context, err error) {
	response.HandleError(c, toAppError(err))
}
