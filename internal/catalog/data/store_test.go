package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	rc := redis.NewWithClient(rdb, redis.DefaultConfig(), logger.NewNop())
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestStatsStore_LoadSaveAdjust(t *testing.T) {
	rc, mr := newTestRedis(t)
	store := NewStatsStore(rc, "test")
	ctx := context.Background()

	cold, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cold)

	adjusted, err := store.Adjust(ctx, 1, 100, time.Now())
	require.NoError(t, err)
	assert.Nil(t, adjusted, "no snapshot to adjust yet")
	assert.False(t, mr.Exists("catalog:stats:test"))

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	saved, err := store.Save(ctx, biz.StorageStats{TotalFiles: 10, TotalSizeBytes: 1000, LastUpdated: at})
	require.NoError(t, err)
	assert.Equal(t, at, saved.LastUpdated)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, *loaded)

	adjusted, err = store.Adjust(ctx, -1, -250, at.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, adjusted)
	assert.EqualValues(t, 9, adjusted.TotalFiles)
	assert.EqualValues(t, 750, adjusted.TotalSizeBytes)
	assert.True(t, adjusted.Estimated)

	// 不会减到负数
	adjusted, err = store.Adjust(ctx, -100, -100000, at.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, adjusted.TotalFiles)
	assert.Zero(t, adjusted.TotalSizeBytes)
}

func TestStatsStore_TimestampStrictlyIncreases(t *testing.T) {
	rc, _ := newTestRedis(t)
	store := NewStatsStore(rc, "")
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := store.Save(ctx, biz.StorageStats{TotalFiles: 1, LastUpdated: at})
	require.NoError(t, err)

	// 时钟回拨或同一时刻写入
	second, err := store.Save(ctx, biz.StorageStats{TotalFiles: 2, LastUpdated: at.Add(-time.Hour)})
	require.NoError(t, err)
	assert.True(t, second.LastUpdated.After(first.LastUpdated))

	third, err := store.Adjust(ctx, 1, 1, second.LastUpdated)
	require.NoError(t, err)
	assert.True(t, third.LastUpdated.After(second.LastUpdated))
}

func TestStatsStore_ConcurrentWriters(t *testing.T) {
	rc, _ := newTestRedis(t)
	store := NewStatsStore(rc, "race")
	ctx := context.Background()

	_, err := store.Save(ctx, biz.StorageStats{LastUpdated: time.Now()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Adjust(ctx, 1, 10, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, loaded.TotalFiles)
	assert.EqualValues(t, 30, loaded.TotalSizeBytes)
}

func TestRecentStore(t *testing.T) {
	rc, mr := newTestRedis(t)
	store := NewRecentStore(rc)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "b"} {
		require.NoError(t, store.Add(ctx, "alice", id, base.Add(time.Duration(i)*time.Second), 3))
	}

	entries, err := store.List(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].FileID)
	assert.Equal(t, base.Add(4*time.Second), entries[0].ViewedAt)
	assert.Equal(t, "d", entries[1].FileID)
	assert.Equal(t, "c", entries[2].FileID)

	top, err := store.List(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	members, err := mr.ZMembers("catalog:recent:alice")
	require.NoError(t, err)
	assert.Len(t, members, 3, "older views are trimmed on write")

	require.NoError(t, store.Remove(ctx, "alice", "d", "missing"))
	require.NoError(t, store.Remove(ctx, "alice"))
	entries, err = store.List(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	none, err := store.List(ctx, "bob", 3)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.Clear(ctx, "alice"))
	assert.False(t, mr.Exists("catalog:recent:alice"))
}

func TestRecentStore_SubMillisecondOrder(t *testing.T) {
	rc, _ := newTestRedis(t)
	store := NewRecentStore(rc)
	ctx := context.Background()

	// 同一毫秒内的浏览按微秒排序，而不是按成员名排序
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(ctx, "alice", "z", base.Add(100*time.Microsecond), 2))
	require.NoError(t, store.Add(ctx, "alice", "a", base.Add(200*time.Microsecond), 2))
	require.NoError(t, store.Add(ctx, "alice", "m", base.Add(300*time.Microsecond), 2))

	entries, err := store.List(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m", entries[0].FileID)
	assert.Equal(t, base.Add(300*time.Microsecond), entries[0].ViewedAt)
	assert.Equal(t, "a", entries[1].FileID, "the oldest view is evicted")
}
