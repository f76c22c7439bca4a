package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	pkgminio "github.com/lk2023060901/doc-catalog-backend/internal/pkg/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects 内存版 objectStore，错误形态与 pkg/minio 一致
type fakeObjects struct {
	objects map[string][]byte
	listErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func notFound(op, key string) error {
	return &pkgminio.Error{Op: op, Bucket: "catalog", Object: key, Err: pkgminio.ErrObjectNotFound}
}

func (f *fakeObjects) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (pkgminio.ObjectInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return pkgminio.ObjectInfo{}, err
	}
	f.objects[key] = data
	return pkgminio.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (f *fakeObjects) StatObject(ctx context.Context, key string) (pkgminio.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return pkgminio.ObjectInfo{}, notFound("StatObject", key)
	}
	return pkgminio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjects) RemoveObject(ctx context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return notFound("RemoveObject", key)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) ListObjects(ctx context.Context, prefix string) (<-chan pkgminio.ObjectInfo, <-chan error) {
	objCh := make(chan pkgminio.ObjectInfo, len(f.objects))
	errCh := make(chan error, 1)
	for k, v := range f.objects {
		objCh <- pkgminio.ObjectInfo{Key: k, Size: int64(len(v))}
	}
	if f.listErr != nil {
		errCh <- f.listErr
	}
	close(objCh)
	close(errCh)
	return objCh, errCh
}

func (f *fakeObjects) PresignedGetObject(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	if expiry > 7*24*time.Hour {
		return "", &pkgminio.Error{Op: "PresignedGetObject", Object: key, Err: pkgminio.ErrInvalidArgument}
	}
	return fmt.Sprintf("https://minio.local/catalog/%s?X-Amz-Expires=%d", key, int(expiry.Seconds())), nil
}

func (f *fakeObjects) Open(ctx context.Context, key string) (io.ReadCloser, pkgminio.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, pkgminio.ObjectInfo{}, notFound("GetObject", key)
	}
	return io.NopCloser(bytes.NewReader(data)), pkgminio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func TestBlobStore_PutGetDelete(t *testing.T) {
	objects := newFakeObjects()
	store := &BlobStore{objects: objects}
	ctx := context.Background()

	info, err := store.Put(ctx, "files/2024/a.pdf", []byte("hello"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, biz.BlobInfo{Key: "files/2024/a.pdf", Size: 5}, info)

	ok, err := store.Exists(ctx, "files/2024/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, info, err := store.Get(ctx, "files/2024/a.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "hello", string(body))
	assert.EqualValues(t, 5, info.Size)

	require.NoError(t, store.Delete(ctx, "files/2024/a.pdf"))
	require.NoError(t, store.Delete(ctx, "files/2024/a.pdf"), "delete is idempotent")

	_, _, err = store.Get(ctx, "files/2024/a.pdf")
	assert.ErrorIs(t, err, biz.ErrFileNotFound)

	ok, err = store.Exists(ctx, "files/2024/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobStore_Walk(t *testing.T) {
	objects := newFakeObjects()
	store := &BlobStore{objects: objects}
	ctx := context.Background()

	for i, size := range []int{10, 20, 30} {
		_, err := store.Put(ctx, fmt.Sprintf("files/2024/%d", i), make([]byte, size), "application/pdf")
		require.NoError(t, err)
	}

	var files, total int64
	require.NoError(t, store.Walk(ctx, func(b biz.BlobInfo) error {
		files++
		total += b.Size
		return nil
	}))
	assert.EqualValues(t, 3, files)
	assert.EqualValues(t, 60, total)

	stop := errors.New("stop")
	assert.ErrorIs(t, store.Walk(ctx, func(biz.BlobInfo) error { return stop }), stop)

	objects.listErr = errors.New("connection reset")
	assert.Error(t, store.Walk(ctx, func(biz.BlobInfo) error { return nil }))
}

func TestBlobStore_Locate(t *testing.T) {
	store := &BlobStore{objects: newFakeObjects()}

	u, err := store.Locate(context.Background(), "files/2024/a.pdf", "a.pdf", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "files/2024/a.pdf")

	_, err = store.Locate(context.Background(), "files/2024/a.pdf", "a.pdf", 30*24*time.Hour)
	assert.ErrorIs(t, err, biz.ErrValidation)
	assert.Equal(t, "expiry", biz.FieldOf(err))
}
