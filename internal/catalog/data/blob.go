package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	pkgminio "github.com/lk2023060901/doc-catalog-backend/internal/pkg/minio"
)

// objectStore 是 BlobStore 用到的 MinIO 客户端方法子集
type objectStore interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (pkgminio.ObjectInfo, error)
	StatObject(ctx context.Context, key string) (pkgminio.ObjectInfo, error)
	RemoveObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) (<-chan pkgminio.ObjectInfo, <-chan error)
	PresignedGetObject(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, pkgminio.ObjectInfo, error)
}

// minioObjects 把 *pkgminio.Client 适配为 objectStore
type minioObjects struct {
	*pkgminio.Client
}

func (m minioObjects) PresignedGetObject(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, key, filename, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m minioObjects) Open(ctx context.Context, key string) (io.ReadCloser, pkgminio.ObjectInfo, error) {
	return m.Client.GetObject(ctx, key)
}

// BlobStore 基于 MinIO 的 biz.BlobStore 实现
type BlobStore struct {
	objects objectStore
}

// NewBlobStore 创建对象存储
func NewBlobStore(client *pkgminio.Client) *BlobStore {
	return &BlobStore{objects: minioObjects{Client: client}}
}

// Put 上传对象
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (biz.BlobInfo, error) {
	info, err := s.objects.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return biz.BlobInfo{}, fmt.Errorf("failed to upload object: %w", err)
	}
	size := info.Size
	if size == 0 {
		size = int64(len(data))
	}
	return biz.BlobInfo{Key: key, Size: size}, nil
}

// Get 打开对象；对象不存在时返回 biz.ErrFileNotFound
func (s *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, biz.BlobInfo, error) {
	rc, info, err := s.objects.Open(ctx, key)
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return nil, biz.BlobInfo{}, biz.ErrFileNotFound
		}
		return nil, biz.BlobInfo{}, fmt.Errorf("failed to get object: %w", err)
	}
	return rc, biz.BlobInfo{Key: key, Size: info.Size}, nil
}

// Delete 删除对象，对象不存在视为成功
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.objects.RemoveObject(ctx, key); err != nil && !pkgminio.IsNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.objects.StatObject(ctx, key); err != nil {
		if pkgminio.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Walk 遍历桶内所有对象；fn 返回错误时停止
func (s *BlobStore) Walk(ctx context.Context, fn func(biz.BlobInfo) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh, errCh := s.objects.ListObjects(ctx, "")
	for obj := range objCh {
		if err := fn(biz.BlobInfo{Key: obj.Key, Size: obj.Size}); err != nil {
			return err
		}
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("failed to list objects: %w", err)
	}
	return nil
}

// Locate 生成预签名下载地址
func (s *BlobStore) Locate(ctx context.Context, key, fileName string, expiry time.Duration) (string, error) {
	u, err := s.objects.PresignedGetObject(ctx, key, fileName, expiry)
	if err != nil {
		if errors.Is(err, pkgminio.ErrInvalidArgument) {
			return "", &biz.ValidationError{Field: "expiry", Reason: "must be between 1s and 7 days"}
		}
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u, nil
}
