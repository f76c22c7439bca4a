package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// RecentStore 每个用户一个 ZSET，score 为浏览时间（微秒）
type RecentStore struct {
	rc *redis.Client
}

// NewRecentStore 创建最近浏览存储
func NewRecentStore(rc *redis.Client) *RecentStore {
	return &RecentStore{rc: rc}
}

func (s *RecentStore) key(userID string) string {
	return s.rc.Key("recent", userID)
}

// Add 写入浏览记录并裁剪到 limit 条
func (s *RecentStore) Add(ctx context.Context, userID, fileID string, viewedAt time.Time, limit int) error {
	key := s.key(userID)
	_, err := s.rc.Universal().TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(viewedAt.UnixMicro()), Member: fileID})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(limit + 1)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record recent view: %w", err)
	}
	return nil
}

// List 按浏览时间倒序返回
func (s *RecentStore) List(ctx context.Context, userID string, limit int) ([]biz.RecentEntry, error) {
	zs, err := s.rc.Universal().ZRevRangeWithScores(ctx, s.key(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent views: %w", err)
	}
	return lo.FilterMap(zs, func(z goredis.Z, _ int) (biz.RecentEntry, bool) {
		id, ok := z.Member.(string)
		return biz.RecentEntry{FileID: id, ViewedAt: time.UnixMicro(int64(z.Score)).UTC()}, ok
	}), nil
}

// Remove 删除指定文件的浏览记录
func (s *RecentStore) Remove(ctx context.Context, userID string, fileIDs ...string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	members := lo.Map(fileIDs, func(id string, _ int) interface{} { return id })
	if err := s.rc.Universal().ZRem(ctx, s.key(userID), members...).Err(); err != nil {
		return fmt.Errorf("failed to prune recent views: %w", err)
	}
	return nil
}

// Clear 清空用户的浏览记录
func (s *RecentStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.rc.Del(ctx, s.key(userID)); err != nil {
		return fmt.Errorf("failed to clear recent views: %w", err)
	}
	return nil
}
