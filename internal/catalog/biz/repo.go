package biz

import (
	"context"
	"io"
	"time"
)

// FileRepo 文件元数据仓储
type FileRepo interface {
	Create(ctx context.Context, rec *FileRecord) error
	GetByID(ctx context.Context, id string) (*FileRecord, error)
	// GetByIDs 批量查询，不存在的 id 直接忽略，返回顺序不保证
	GetByIDs(ctx context.Context, ids []string) ([]*FileRecord, error)
	Update(ctx context.Context, id string, patch *FilePatch) (*FileRecord, error)
	// Delete 幂等，记录不存在视为成功
	Delete(ctx context.Context, id string) error
	// Query 按 created_at DESC, id DESC 排序，搜索条件在分页之前应用
	Query(ctx context.Context, filter Filter, page PageRequest) (*Page, error)
}

// BlobStore 对象存储
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (BlobInfo, error)
	// Get 对象不存在时返回 ErrFileNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	// Delete 幂等，对象不存在视为成功
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Walk 一次完整遍历所有对象
	Walk(ctx context.Context, fn func(BlobInfo) error) error
	// Locate 生成带下载文件名的预签名 URL
	Locate(ctx context.Context, key, fileName string, expiry time.Duration) (string, error)
}

// StatsStore 存储统计快照；LastUpdated 在每次写入时严格递增
type StatsStore interface {
	// Load 没有快照时返回 nil, nil
	Load(ctx context.Context) (*StorageStats, error)
	// Save 写入完整快照，返回实际保存的值
	Save(ctx context.Context, stats StorageStats) (StorageStats, error)
	// Adjust 在现有快照上叠加增量并标记为估算值；没有快照时不写入，返回 nil
	Adjust(ctx context.Context, deltaFiles, deltaBytes int64, at time.Time) (*StorageStats, error)
}

// RecentStore 每个用户最近浏览的文件 id
type RecentStore interface {
	// Add 记录浏览并只保留最新的 limit 条
	Add(ctx context.Context, userID, fileID string, viewedAt time.Time, limit int) error
	// List 按浏览时间倒序返回至多 limit 个 id
	List(ctx context.Context, userID string, limit int) ([]RecentEntry, error)
	Remove(ctx context.Context, userID string, fileIDs ...string) error
	Clear(ctx context.Context, userID string) error
}

// Notifier 文件事件的外部通知渠道
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
