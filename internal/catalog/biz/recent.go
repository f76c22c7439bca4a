package biz

import (
	"context"
	"strings"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultRecentLimit 每个用户保留的最近浏览条数
const DefaultRecentLimit = 8

// RecentEntry 一条浏览记录
type RecentEntry struct {
	FileID   string
	ViewedAt time.Time
}

// RecentFile 解析后的最近浏览文件
type RecentFile struct {
	File     *FileRecord
	ViewedAt time.Time
}

// RecentUseCase 最近浏览用例
type RecentUseCase struct {
	store  RecentStore
	repo   FileRepo
	limit  int
	logger *logger.Logger
	now    func() time.Time
}

// NewRecentUseCase 创建最近浏览用例
func NewRecentUseCase(store RecentStore, repo FileRepo, limit int, log *logger.Logger) *RecentUseCase {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentUseCase{
		store:  store,
		repo:   repo,
		limit:  limit,
		logger: log.Named("recent"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Limit 保留条数上限
func (uc *RecentUseCase) Limit() int { return uc.limit }

// Record 记录一次浏览；文件不存在时返回 ErrFileNotFound
func (uc *RecentUseCase) Record(ctx context.Context, userID, fileID string) error {
	if strings.TrimSpace(userID) == "" {
		return newValidationError("userId", "required")
	}
	if _, err := uc.repo.GetByID(ctx, fileID); err != nil {
		return metadataError("get", err)
	}
	return uc.store.Add(ctx, userID, fileID, uc.now(), uc.limit)
}

// List 按浏览时间倒序返回最近浏览的文件；已删除的文件被跳过并从列表中清除
func (uc *RecentUseCase) List(ctx context.Context, userID string, limit int) ([]RecentFile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newValidationError("userId", "required")
	}
	if limit <= 0 || limit > uc.limit {
		limit = uc.limit
	}

	entries, err := uc.store.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []RecentFile{}, nil
	}

	ids := lo.Map(entries, func(e RecentEntry, _ int) string { return e.FileID })
	records, err := uc.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, metadataError("get_by_ids", err)
	}
	byID := lo.KeyBy(records, func(r *FileRecord) string { return r.ID })

	out := make([]RecentFile, 0, len(entries))
	var missing []string
	for _, e := range entries {
		rec, ok := byID[e.FileID]
		if !ok {
			missing = append(missing, e.FileID)
			continue
		}
		out = append(out, RecentFile{File: rec, ViewedAt: e.ViewedAt})
	}

	if len(missing) > 0 {
		uc.prune(ctx, userID, missing)
	}
	return out, nil
}

// Clear 清空用户的最近浏览
func (uc *RecentUseCase) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return newValidationError("userId", "required")
	}
	return uc.store.Clear(ctx, userID)
}

func (uc *RecentUseCase) prune(ctx context.Context, userID string, fileIDs []string) Result {
	res := Result{Op: "prune_recent", Key: userID, Err: uc.store.Remove(ctx, userID, fileIDs...)}
	if !res.OK() {
		bestEffortFailures.WithLabelValues(res.Op).Inc()
		uc.logger.WithContext(ctx).Warn("failed to prune recently viewed entries",
			zap.String("user_id", userID),
			zap.Strings("file_ids", fileIDs),
			zap.Error(res.Err))
	}
	return res
}
