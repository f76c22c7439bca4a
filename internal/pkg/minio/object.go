package minio

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

func fromMinio(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}
}

// PutObject uploads size bytes from reader under key
func (c *Client) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (ObjectInfo, error) {
	if err := c.checkObject(key); err != nil {
		return ObjectInfo{}, err
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectInfo{}, wrap("PutObject", c.config.Bucket, key, err)
	}

	c.logger.Debug("object uploaded",
		zap.String("object", key),
		zap.Int64("size", info.Size),
		zap.String("etag", info.ETag),
	)
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  contentType,
		LastModified: info.LastModified,
	}, nil
}

// GetObject opens key for reading. The object is stat'ed first so a
// missing key surfaces here rather than on the first Read.
func (c *Client) GetObject(ctx context.Context, key string) (*minio.Object, ObjectInfo, error) {
	if err := c.checkObject(key); err != nil {
		return nil, ObjectInfo{}, err
	}

	obj, err := c.client.GetObject(ctx, c.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, wrap("GetObject", c.config.Bucket, key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, wrap("GetObject", c.config.Bucket, key, err)
	}
	return obj, fromMinio(info), nil
}

// StatObject returns metadata for key
func (c *Client) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	if err := c.checkObject(key); err != nil {
		return ObjectInfo{}, err
	}

	info, err := c.client.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, wrap("StatObject", c.config.Bucket, key, err)
	}
	return fromMinio(info), nil
}

// RemoveObject deletes key
func (c *Client) RemoveObject(ctx context.Context, key string) error {
	if err := c.checkObject(key); err != nil {
		return err
	}

	if err := c.client.RemoveObject(ctx, c.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrap("RemoveObject", c.config.Bucket, key, err)
	}
	c.logger.Debug("object removed", zap.String("object", key))
	return nil
}

// ListObjects streams every object under prefix. The error channel
// receives at most one value and both channels are closed when done.
func (c *Client) ListObjects(ctx context.Context, prefix string) (<-chan ObjectInfo, <-chan error) {
	objCh := make(chan ObjectInfo)
	errCh := make(chan error, 1)

	go func() {
		defer close(objCh)
		defer close(errCh)

		if err := c.checkClosed(); err != nil {
			errCh <- err
			return
		}

		for obj := range c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				errCh <- wrap("ListObjects", c.config.Bucket, prefix, obj.Err)
				return
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}

			select {
			case objCh <- fromMinio(obj):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return objCh, errCh
}

func (c *Client) checkObject(key string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if key == "" {
		return wrap("checkObject", c.config.Bucket, key, ErrInvalidObjectName)
	}
	return nil
}
