package biz

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// DefaultStatsStaleness 快照超过该时长视为过期
const DefaultStatsStaleness = 10 * time.Minute

// 一次同步扫描最多连续重扫的次数，之后交给后台继续
const maxScanPasses = 3

// StorageStats 存储用量快照
type StorageStats struct {
	TotalFiles     int64
	TotalSizeBytes int64
	LastUpdated    time.Time
	Estimated      bool
}

// StatsState 快照状态
type StatsState string

const (
	StatsCold  StatsState = "cold"
	StatsFresh StatsState = "fresh"
	StatsStale StatsState = "stale"
)

// StatsSnapshot Read 的返回值
type StatsSnapshot struct {
	StorageStats
	State      StatsState
	Refreshing bool
}

// StatsCache 存储用量缓存：读取从不阻塞，过期或缺失时在后台重算。
// 同一时刻最多只有一次全量扫描。
type StatsCache struct {
	store     StatsStore
	blobs     BlobStore
	pool      *workerpool.Pool
	staleness time.Duration
	logger    *logger.Logger

	inFlight atomic.Bool
	// dirty 扫描期间有增量写入，扫描结果可能已过时
	dirty atomic.Bool
	// seq 单调序号；lastSave 为最近一次扫描结果落盘时的序号
	seq      atomic.Uint64
	lastSave atomic.Uint64
	now      func() time.Time
}

// NewStatsCache 创建存储用量缓存；pool 为 nil 时在独立 goroutine 中重算
func NewStatsCache(store StatsStore, blobs BlobStore, pool *workerpool.Pool, staleness time.Duration, log *logger.Logger) *StatsCache {
	if staleness <= 0 {
		staleness = DefaultStatsStaleness
	}
	return &StatsCache{
		store:     store,
		blobs:     blobs,
		pool:      pool,
		staleness: staleness,
		logger:    log.Named("stats"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Read 立即返回当前快照（冷启动时为零值），必要时触发后台重算
func (s *StatsCache) Read(ctx context.Context) StatsSnapshot {
	stats, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Warn("failed to load storage stats", zap.Error(err))
		stats = nil
	}

	state := s.stateOf(stats)
	if state != StatsFresh {
		s.Refresh()
	}

	snap := StatsSnapshot{State: state, Refreshing: s.inFlight.Load()}
	if stats != nil {
		snap.StorageStats = *stats
	}
	return snap
}

// Refresh 提交一次后台重算；已有重算进行中时合并，返回 false
func (s *StatsCache) Refresh() bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}

	task := func(ctx context.Context) {
		if _, err := s.scan(ctx); err != nil {
			s.logger.Error("background stats recompute failed", zap.Error(err))
		}
	}

	if s.pool == nil {
		go task(context.Background())
		return true
	}
	if err := s.pool.SubmitWithPriority(workerpool.PriorityLow, task); err != nil {
		s.inFlight.Store(false)
		s.logger.Warn("failed to schedule stats recompute", zap.Error(err))
		return false
	}
	return true
}

// Recompute 同步执行一次全量扫描；已有扫描进行中时返回 ErrRecomputeInProgress
func (s *StatsCache) Recompute(ctx context.Context) (StorageStats, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return StorageStats{}, ErrRecomputeInProgress
	}
	return s.scan(ctx)
}

// scan 在持有 inFlight 时调用，返回前释放。
// 扫描期间有增量写入则重扫；释放之后才发现的写入交给新的后台扫描。
func (s *StatsCache) scan(ctx context.Context) (StorageStats, error) {
	var (
		saved StorageStats
		err   error
	)
	for pass := 0; pass < maxScanPasses; pass++ {
		s.dirty.Store(false)
		saved, err = s.recompute(ctx)
		if err != nil || !s.dirty.Load() {
			break
		}
		s.logger.Debug("storage changed during scan, rescanning", zap.Int("pass", pass+1))
	}
	s.inFlight.Store(false)

	if err == nil && s.dirty.Load() {
		s.Refresh()
	}
	return saved, err
}

func (s *StatsCache) recompute(ctx context.Context) (StorageStats, error) {
	start := time.Now()

	var files, bytes int64
	err := s.blobs.Walk(ctx, func(b BlobInfo) error {
		files++
		bytes += b.Size
		return nil
	})
	if err != nil {
		statsRecomputes.WithLabelValues("error").Inc()
		return StorageStats{}, fmt.Errorf("%w: list blobs: %w", ErrStorageRead, err)
	}

	saved, err := s.store.Save(ctx, StorageStats{
		TotalFiles:     files,
		TotalSizeBytes: bytes,
		LastUpdated:    s.now(),
		Estimated:      false,
	})
	if err != nil {
		statsRecomputes.WithLabelValues("error").Inc()
		return StorageStats{}, fmt.Errorf("save storage stats: %w", err)
	}
	s.lastSave.Store(s.seq.Add(1))

	statsRecomputes.WithLabelValues("ok").Inc()
	statsRecomputeDuration.Observe(time.Since(start).Seconds())
	statsTotalFiles.Set(float64(saved.TotalFiles))
	statsTotalBytes.Set(float64(saved.TotalSizeBytes))

	s.logger.Info("storage stats recomputed",
		zap.Int64("total_files", saved.TotalFiles),
		zap.Int64("total_size_bytes", saved.TotalSizeBytes),
		zap.Duration("elapsed", time.Since(start)))
	return saved, nil
}

// Invalidate 把写操作的增量叠加到快照上并标记为估算值。
// 不触发全量扫描，除非增量可能被同时落盘的扫描结果覆盖；过期仍由 Read 驱动。
func (s *StatsCache) Invalidate(ctx context.Context, deltaFiles, deltaBytes int64) {
	if deltaFiles == 0 && deltaBytes == 0 {
		return
	}
	mark := s.seq.Add(1)
	if _, err := s.store.Adjust(ctx, deltaFiles, deltaBytes, s.now()); err != nil {
		s.logger.WithContext(ctx).Warn("failed to adjust storage stats",
			zap.Int64("delta_files", deltaFiles),
			zap.Int64("delta_bytes", deltaBytes),
			zap.Error(err))
	}
	s.dirty.Store(true)

	if s.lastSave.Load() > mark {
		s.Refresh()
	}
}

// StartRefresher 按固定间隔触发重算，直到 ctx 取消
func (s *StatsCache) StartRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh()
			}
		}
	}()
}

// InFlight 是否有重算正在进行
func (s *StatsCache) InFlight() bool {
	return s.inFlight.Load()
}

func (s *StatsCache) stateOf(stats *StorageStats) StatsState {
	if stats == nil {
		return StatsCold
	}
	if s.now().Sub(stats.LastUpdated) >= s.staleness {
		return StatsStale
	}
	return StatsFresh
}

const (
	mib = 1 << 20
	gib = 1 << 30
)

// FormatSize 展示用单位换算：不小于 1 GiB 用 GB，否则用 MB，保留两位小数
func FormatSize(bytes int64) string {
	if bytes >= gib {
		return fmt.Sprintf("%.2f GB", float64(bytes)/gib)
	}
	return fmt.Sprintf("%.2f MB", float64(bytes)/mib)
}
