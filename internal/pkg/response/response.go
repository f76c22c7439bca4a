package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/doc-catalog-backend/internal/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`              // 业务错误码（0表示成功）
	Message string      `json:"message,omitempty"` // 提示信息
	Data    interface{} `json:"data"`              // 实际数据
}

func write(c *gin.Context, status int, code int, message string, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, apperrors.Success, "", data)
}

// Created 创建资源成功（201）
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, apperrors.Success, "", data)
}

// Accepted 已接受，异步处理中（202）
func Accepted(c *gin.Context, data interface{}) {
	write(c, http.StatusAccepted, apperrors.Success, "", data)
}

// NoContent 删除成功等无内容响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode 使用业务错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	write(c, apperrors.GetHTTPStatus(code), code, apperrors.FormatError(code, details...), nil)
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, details string) {
	ErrorWithCode(c, apperrors.ErrInvalidParams, details)
}

// Unauthorized 401 错误
func Unauthorized(c *gin.Context, details string) {
	ErrorWithCode(c, apperrors.ErrUnauthorized, details)
}

// HandleError 统一错误处理；5xx 只返回通用信息，不暴露内部细节
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code := apperrors.ExtractCode(err)
	if apperrors.IsServerError(code) {
		ErrorWithCode(c, code)
		return
	}
	ErrorWithCode(c, code, apperrors.GetDetails(err))
}
