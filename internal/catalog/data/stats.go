package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

// 乐观事务冲突时的重试次数
const statsWatchAttempts = 5

type statsPayload struct {
	TotalFiles     int64 `json:"total_files"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	LastUpdated    int64 `json:"last_updated"` // unix nano
	Estimated      bool  `json:"estimated"`
}

func (p statsPayload) toDomain() *biz.StorageStats {
	return &biz.StorageStats{
		TotalFiles:     p.TotalFiles,
		TotalSizeBytes: p.TotalSizeBytes,
		LastUpdated:    time.Unix(0, p.LastUpdated).UTC(),
		Estimated:      p.Estimated,
	}
}

func toStatsPayload(s biz.StorageStats) statsPayload {
	return statsPayload{
		TotalFiles:     s.TotalFiles,
		TotalSizeBytes: s.TotalSizeBytes,
		LastUpdated:    s.LastUpdated.UnixNano(),
		Estimated:      s.Estimated,
	}
}

// StatsStore 把存储统计快照保存在 Redis，多个实例共享同一份
type StatsStore struct {
	rc  *redis.Client
	key string
}

// NewStatsStore 创建统计快照存储；namespace 区分不同部署
func NewStatsStore(rc *redis.Client, namespace string) *StatsStore {
	if namespace == "" {
		namespace = "default"
	}
	return &StatsStore{rc: rc, key: rc.Key("stats", namespace)}
}

// Load 读取快照；没有快照时返回 nil, nil
func (s *StatsStore) Load(ctx context.Context) (*biz.StorageStats, error) {
	var p statsPayload
	if err := s.rc.GetJSON(ctx, s.key, &p); err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load storage stats: %w", err)
	}
	return p.toDomain(), nil
}

// Save 写入完整快照
func (s *StatsStore) Save(ctx context.Context, stats biz.StorageStats) (biz.StorageStats, error) {
	saved, err := s.update(ctx, func(*biz.StorageStats) *biz.StorageStats {
		next := stats
		return &next
	})
	if err != nil {
		return biz.StorageStats{}, err
	}
	return *saved, nil
}

// Adjust 在已有快照上叠加增量
func (s *StatsStore) Adjust(ctx context.Context, deltaFiles, deltaBytes int64, at time.Time) (*biz.StorageStats, error) {
	return s.update(ctx, func(cur *biz.StorageStats) *biz.StorageStats {
		if cur == nil {
			return nil
		}
		next := *cur
		next.TotalFiles = max(next.TotalFiles+deltaFiles, 0)
		next.TotalSizeBytes = max(next.TotalSizeBytes+deltaBytes, 0)
		next.LastUpdated = at
		next.Estimated = true
		return &next
	})
}

// update 在 WATCH 事务中读取、修改并写回快照，保证 LastUpdated 严格递增。
// fn 返回 nil 表示不写入。
func (s *StatsStore) update(ctx context.Context, fn func(cur *biz.StorageStats) *biz.StorageStats) (*biz.StorageStats, error) {
	var out *biz.StorageStats

	txf := func(tx *goredis.Tx) error {
		cur, err := readStats(ctx, tx, s.key)
		if err != nil {
			return err
		}
		next := fn(cur)
		if next == nil {
			out = nil
			return nil
		}
		if cur != nil && !next.LastUpdated.After(cur.LastUpdated) {
			next.LastUpdated = cur.LastUpdated.Add(time.Nanosecond)
		}
		data, err := json.Marshal(toStatsPayload(*next))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		out = next
		return err
	}

	err := retry.Do(
		func() error { return s.rc.Universal().Watch(ctx, txf, s.key) },
		retry.Attempts(statsWatchAttempts),
		retry.Delay(5*time.Millisecond),
		retry.RetryIf(func(err error) bool { return errors.Is(err, goredis.TxFailedErr) }),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write storage stats: %w", err)
	}
	return out, nil
}

func readStats(ctx context.Context, tx *goredis.Tx, key string) (*biz.StorageStats, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var p statsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("corrupt storage stats: %w", err)
	}
	return p.toDomain(), nil
}
