package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecentFixture(t *testing.T, limit int, files int) (*RecentUseCase, *memRecent, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	for i := 0; i < files; i++ {
		require.NoError(t, repo.Create(context.Background(), &FileRecord{ID: fmt.Sprintf("f%d", i), Category: "Invoices", Year: 2024}))
	}
	store := newMemRecent()
	uc := NewRecentUseCase(store, repo, limit, logger.NewNop())

	// 每次调用前进一秒，保证浏览时间有序
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	uc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return uc, store, repo
}

func fileIDs(files []RecentFile) []string {
	return lo.Map(files, func(f RecentFile, _ int) string { return f.File.ID })
}

func TestRecent_OrderAndLimit(t *testing.T) {
	uc, _, _ := newRecentFixture(t, 3, 5)
	ctx := context.Background()

	for _, id := range []string{"f0", "f1", "f2", "f3", "f1"} {
		require.NoError(t, uc.Record(ctx, "alice", id))
	}

	got, err := uc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f3", "f2"}, fileIDs(got))
	assert.True(t, got[0].ViewedAt.After(got[1].ViewedAt))

	got, err = uc.List(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f3"}, fileIDs(got))

	// 超过上限的 limit 被截断
	got, err = uc.List(ctx, "alice", 50)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	other, err := uc.List(ctx, "bob", 0)
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestRecent_DefaultLimit(t *testing.T) {
	uc, _, _ := newRecentFixture(t, 0, 12)
	assert.Equal(t, DefaultRecentLimit, uc.Limit())

	for i := 0; i < 12; i++ {
		require.NoError(t, uc.Record(context.Background(), "alice", fmt.Sprintf("f%d", i)))
	}
	got, err := uc.List(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultRecentLimit)
	assert.Equal(t, "f11", got[0].File.ID)
}

func TestRecent_RecordErrors(t *testing.T) {
	uc, _, _ := newRecentFixture(t, 3, 1)
	ctx := context.Background()

	assert.ErrorIs(t, uc.Record(ctx, "alice", "missing"), ErrFileNotFound)
	assert.Equal(t, "userId", FieldOf(uc.Record(ctx, " ", "f0")))

	_, err := uc.List(ctx, "", 0)
	assert.Equal(t, "userId", FieldOf(err))
	assert.Equal(t, "userId", FieldOf(uc.Clear(ctx, "")))
}

func TestRecent_DeletedFilesArePruned(t *testing.T) {
	uc, store, repo := newRecentFixture(t, 5, 3)
	ctx := context.Background()

	for _, id := range []string{"f0", "f1", "f2"} {
		require.NoError(t, uc.Record(ctx, "alice", id))
	}
	require.NoError(t, repo.Delete(ctx, "f1"))

	got, err := uc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f0"}, fileIDs(got))
	assert.Equal(t, []string{"f1"}, store.removed)

	entries, err := store.List(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecent_PruneFailureIsNotFatal(t *testing.T) {
	uc, store, repo := newRecentFixture(t, 5, 2)
	ctx := context.Background()

	require.NoError(t, uc.Record(ctx, "alice", "f0"))
	require.NoError(t, uc.Record(ctx, "alice", "f1"))
	require.NoError(t, repo.Delete(ctx, "f0"))
	store.failPrune = true

	got, err := uc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, fileIDs(got))
}

func TestRecent_Clear(t *testing.T) {
	uc, _, _ := newRecentFixture(t, 5, 2)
	ctx := context.Background()

	require.NoError(t, uc.Record(ctx, "alice", "f0"))
	require.NoError(t, uc.Clear(ctx, "alice"))

	got, err := uc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
