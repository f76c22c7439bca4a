package biz

import (
	"errors"
	"fmt"
)

// 文件目录相关错误
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrValidation          = errors.New("validation failed")
	ErrStorageWrite        = errors.New("storage write failed")
	ErrStorageRead         = errors.New("storage read failed")
	ErrMetadata            = errors.New("metadata store failed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// 存储统计相关错误
var (
	ErrRecomputeInProgress = errors.New("storage stats recompute already in progress")
)

// ValidationError 指明校验失败的字段
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// FieldOf 返回校验失败的字段名，非校验错误返回空串
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

// 以下包装函数同时保留哨兵错误与底层错误
func storageWriteError(key string, err error) error {
	return fmt.Errorf("%w: key %s: %w", ErrStorageWrite, key, err)
}

func storageReadError(key string, err error) error {
	return fmt.Errorf("%w: key %s: %w", ErrStorageRead, key, err)
}

func metadataError(op string, err error) error {
	if errors.Is(err, ErrFileNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrMetadata, op, err)
}
