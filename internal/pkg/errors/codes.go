package errors

import (
	"fmt"
	"net/http"
)

// Code binds a business code to its HTTP status and default message
type Code struct {
	Code    int
	Status  int
	Message string
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2006
	ErrAuthTokenExpired = 2007

	// Catalog errors (4000-4099)
	ErrCatalogFileNotFound     = 4000
	ErrCatalogInvalidParams    = 4001
	ErrCatalogStorageFailed    = 4002
	ErrCatalogMetadataFailed   = 4003
	ErrCatalogInvalidFileType  = 4004
	ErrCatalogFileTooLarge     = 4005
	ErrCatalogInvalidCursor    = 4006
	ErrCatalogInvalidStatus    = 4007
	ErrCatalogStatsUnavailable = 4008
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},

	ErrCatalogFileNotFound:     {ErrCatalogFileNotFound, http.StatusNotFound, "File not found"},
	ErrCatalogInvalidParams:    {ErrCatalogInvalidParams, http.StatusBadRequest, "Invalid file attributes"},
	ErrCatalogStorageFailed:    {ErrCatalogStorageFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrCatalogMetadataFailed:   {ErrCatalogMetadataFailed, http.StatusInternalServerError, "Metadata operation failed"},
	ErrCatalogInvalidFileType:  {ErrCatalogInvalidFileType, http.StatusBadRequest, "Unsupported file type"},
	ErrCatalogFileTooLarge:     {ErrCatalogFileTooLarge, http.StatusRequestEntityTooLarge, "File size exceeds limit"},
	ErrCatalogInvalidCursor:    {ErrCatalogInvalidCursor, http.StatusBadRequest, "Invalid pagination cursor"},
	ErrCatalogInvalidStatus:    {ErrCatalogInvalidStatus, http.StatusBadRequest, "Invalid document status"},
	ErrCatalogStatsUnavailable: {ErrCatalogStatsUnavailable, http.StatusServiceUnavailable, "Storage statistics unavailable"},
}

// GetCode returns the Code for code, defaulting to ErrInternalServer
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsServerError reports whether code maps to a 5xx status
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= http.StatusInternalServerError
}

// FormatError joins the default message with optional details
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
