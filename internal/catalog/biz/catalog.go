package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// CatalogOptions 文件目录配置
type CatalogOptions struct {
	MaxUploadSize   int64
	AllowOtherTypes bool
	// 记录缓存容量，0 表示关闭；仅适用于单实例部署
	RecordCacheSize   int
	RecordCacheTTL    time.Duration
	DownloadURLExpiry time.Duration
	// 清理孤儿对象的重试策略
	CleanupAttempts uint
	CleanupDelay    time.Duration
	CleanupTimeout  time.Duration
}

// DefaultCatalogOptions 默认配置
func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{
		MaxUploadSize:     100 << 20,
		RecordCacheTTL:    time.Minute,
		DownloadURLExpiry: 15 * time.Minute,
		CleanupAttempts:   3,
		CleanupDelay:      100 * time.Millisecond,
		CleanupTimeout:    30 * time.Second,
	}
}

// CatalogUseCase 文件目录用例：对象存储与元数据的唯一读写入口
type CatalogUseCase struct {
	repo     FileRepo
	blobs    BlobStore
	stats    *StatsCache
	notifier Notifier
	pool     *workerpool.Pool
	cache    *recordCache
	opts     CatalogOptions
	logger   *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewCatalogUseCase 创建文件目录用例；stats、notifier、pool 可为 nil
func NewCatalogUseCase(
	repo FileRepo,
	blobs BlobStore,
	stats *StatsCache,
	notifier Notifier,
	pool *workerpool.Pool,
	opts CatalogOptions,
	log *logger.Logger,
) *CatalogUseCase {
	defaults := DefaultCatalogOptions()
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaults.MaxUploadSize
	}
	if opts.RecordCacheTTL <= 0 {
		opts.RecordCacheTTL = defaults.RecordCacheTTL
	}
	if opts.DownloadURLExpiry <= 0 {
		opts.DownloadURLExpiry = defaults.DownloadURLExpiry
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = defaults.CleanupDelay
	}
	if opts.CleanupAttempts == 0 {
		opts.CleanupAttempts = defaults.CleanupAttempts
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = defaults.CleanupTimeout
	}

	return &CatalogUseCase{
		repo:     repo,
		blobs:    blobs,
		stats:    stats,
		notifier: notifier,
		pool:     pool,
		cache:    newRecordCache(opts.RecordCacheSize, opts.RecordCacheTTL),
		opts:     opts,
		logger:   log.Named("catalog"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Upload 先写对象再写元数据；元数据写入失败时删除已写入的对象
func (uc *CatalogUseCase) Upload(ctx context.Context, in UploadInput) (*FileRecord, error) {
	log := uc.logger.WithContext(ctx)

	in.OriginalName = strings.TrimSpace(in.OriginalName)
	if err := uc.validateContent(in.Data, in.OriginalName, true); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	attrs, err := normalizeAttrs(in.Attrs)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	fileType, err := uc.classify(in.ContentType, in.OriginalName)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	id := uc.newID()
	key := objectKey(attrs.Year, id, objectExt(in.OriginalName, fileType))
	contentType := contentTypeOrDefault(in.ContentType)

	info, err := uc.blobs.Put(ctx, key, in.Data, contentType)
	if err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		log.Error("failed to write blob", zap.String("key", key), zap.Error(err))
		return nil, storageWriteError(key, err)
	}

	// 截断到微秒，与数据库时间精度一致，游标比较才稳定
	now := uc.now().Truncate(time.Microsecond)
	rec := &FileRecord{
		ID:           id,
		OriginalName: in.OriginalName,
		FileType:     fileType,
		ContentType:  contentType,
		Category:     attrs.Category,
		SubCategory:  attrs.SubCategory,
		Year:         attrs.Year,
		Month:        attrs.Month,
		Path:         key,
		Size:         info.Size,
		Description:  attrs.Description,
		UploadedBy:   attrs.UploadedBy,
		Status:       attrs.Status,
		Tags:         attrs.Tags,
		Version:      1,
		IsArchived:   attrs.Status == StatusArchived,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, rec); err != nil {
		uploadsTotal.WithLabelValues("metadata_error").Inc()
		log.Error("failed to insert metadata, removing orphaned blob", zap.String("id", id), zap.Error(err))
		res := uc.deleteBlob(ctx, "compensate_upload", key)
		compensationsTotal.WithLabelValues(resultLabel(res.Err)).Inc()
		return nil, metadataError("create", err)
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	log.Info("file uploaded",
		zap.String("id", rec.ID),
		zap.String("key", key),
		zap.Int64("size", rec.Size),
		zap.String("file_type", string(fileType)))

	uc.invalidateStats(ctx, 1, rec.Size)
	uc.emit(ctx, EventUploaded, rec, "")
	return rec, nil
}

// Replace 替换文件内容：写入新对象、更新元数据后再删除旧对象
func (uc *CatalogUseCase) Replace(ctx context.Context, id string, data []byte, contentType, originalName string) (*FileRecord, error) {
	log := uc.logger.WithContext(ctx)

	existing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, metadataError("get", err)
	}

	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		originalName = existing.OriginalName
	}
	if err := uc.validateContent(data, originalName, false); err != nil {
		return nil, err
	}
	fileType, err := uc.classify(contentType, originalName)
	if err != nil {
		return nil, err
	}

	key := objectKey(existing.Year, uc.newID(), objectExt(originalName, fileType))
	contentType = contentTypeOrDefault(contentType)

	info, err := uc.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		log.Error("failed to write replacement blob", zap.String("id", id), zap.String("key", key), zap.Error(err))
		return nil, storageWriteError(key, err)
	}

	updated, err := uc.repo.Update(ctx, id, &FilePatch{
		OriginalName: &originalName,
		FileType:     &fileType,
		ContentType:  &contentType,
		Path:         &key,
		Size:         &info.Size,
		BumpVersion:  true,
	})
	if err != nil {
		log.Error("failed to patch metadata, removing replacement blob", zap.String("id", id), zap.Error(err))
		res := uc.deleteBlob(ctx, "compensate_replace", key)
		compensationsTotal.WithLabelValues(resultLabel(res.Err)).Inc()
		return nil, metadataError("update", err)
	}
	uc.cache.invalidate(id)

	// 元数据已指向新对象，旧对象的删除失败只留下孤儿对象
	uc.deleteBlob(ctx, "delete_replaced_blob", existing.Path)

	log.Info("file content replaced",
		zap.String("id", id),
		zap.String("old_key", existing.Path),
		zap.String("new_key", key),
		zap.Int("version", updated.Version))

	uc.invalidateStats(ctx, 0, updated.Size-existing.Size)
	return updated, nil
}

// UpdateMetadata 修改业务属性；分类或状态变化时发送通知
func (uc *CatalogUseCase) UpdateMetadata(ctx context.Context, id string, in MetadataPatch) (*FileRecord, error) {
	existing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, metadataError("get", err)
	}

	patch, err := buildMetadataPatch(existing, in)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return existing, nil
	}

	updated, err := uc.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, metadataError("update", err)
	}
	uc.cache.invalidate(id)

	uc.logger.WithContext(ctx).Info("file metadata updated", zap.String("id", id))

	if updated.Category != existing.Category {
		uc.emit(ctx, EventCategoryChanged, updated, existing.Category)
	}
	if updated.Status != existing.Status {
		uc.emit(ctx, EventStatusChanged, updated, string(existing.Status))
	}
	return updated, nil
}

// Get 查询单个文件；启用记录缓存时优先读缓存
func (uc *CatalogUseCase) Get(ctx context.Context, id string) (*FileRecord, error) {
	cached, gen, ok := uc.cache.get(id)
	if ok {
		return cached, nil
	}
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, metadataError("get", err)
	}
	uc.cache.fill(rec, gen)
	return rec, nil
}

// List 不分页地返回所有匹配记录，内部按最大页大小逐页读取
func (uc *CatalogUseCase) List(ctx context.Context, filter Filter) ([]*FileRecord, error) {
	var all []*FileRecord
	req := PageRequest{Limit: MaxPageSize}
	for {
		page, err := uc.repo.Query(ctx, filter, req)
		if err != nil {
			return nil, metadataError("query", err)
		}
		all = append(all, page.Items...)
		if page.NextCursor == nil {
			break
		}
		last := page.Items[len(page.Items)-1]
		req.Cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	if all == nil {
		all = []*FileRecord{}
	}
	return all, nil
}

// ListPage 分页查询
func (uc *CatalogUseCase) ListPage(ctx context.Context, filter Filter, req PageRequest) (*Page, error) {
	req.Limit = ClampLimit(req.Limit)
	page, err := uc.repo.Query(ctx, filter, req)
	if err != nil {
		return nil, metadataError("query", err)
	}
	if page.Items == nil {
		page.Items = []*FileRecord{}
	}
	return page, nil
}

// Delete 先删除元数据，再尽力删除对象；对象删除失败不影响结果
func (uc *CatalogUseCase) Delete(ctx context.Context, id string) error {
	log := uc.logger.WithContext(ctx)

	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return metadataError("get", err)
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		log.Error("failed to delete metadata", zap.String("id", id), zap.Error(err))
		return metadataError("delete", err)
	}
	uc.cache.invalidate(id)
	deletesTotal.WithLabelValues("ok").Inc()

	res := uc.deleteBlob(ctx, "delete_blob", rec.Path)
	log.Info("file deleted",
		zap.String("id", id),
		zap.String("key", rec.Path),
		zap.Bool("blob_removed", res.OK()))

	uc.invalidateStats(ctx, -1, -rec.Size)
	uc.emit(ctx, EventDeleted, rec, "")
	return nil
}

// Download 打开文件内容；记录或对象不存在时返回 ErrFileNotFound
func (uc *CatalogUseCase) Download(ctx context.Context, id string) (*Download, error) {
	rec, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content, info, err := uc.blobs.Get(ctx, rec.Path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			uc.logger.WithContext(ctx).Warn("metadata references a missing blob",
				zap.String("id", id), zap.String("key", rec.Path))
			return nil, fmt.Errorf("%w: blob %s", ErrFileNotFound, rec.Path)
		}
		return nil, storageReadError(rec.Path, err)
	}

	size := info.Size
	if size <= 0 {
		size = rec.Size
	}
	return &Download{
		Content:     content,
		ContentType: contentTypeOrDefault(rec.ContentType),
		FileName:    rec.OriginalName,
		Size:        size,
	}, nil
}

// DownloadURL 生成预签名下载地址；expiry <= 0 使用默认有效期
func (uc *CatalogUseCase) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, time.Duration, error) {
	rec, err := uc.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if expiry <= 0 {
		expiry = uc.opts.DownloadURLExpiry
	}

	url, err := uc.blobs.Locate(ctx, rec.Path, rec.OriginalName, expiry)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return "", 0, err
		}
		return "", 0, storageReadError(rec.Path, err)
	}
	return url, expiry, nil
}

// deleteBlob 尽力删除对象，带有限次重试；请求取消后仍会执行
func (uc *CatalogUseCase) deleteBlob(ctx context.Context, op, key string) Result {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.opts.CleanupTimeout)
	defer cancel()

	err := retry.Do(
		func() error { return uc.blobs.Delete(cleanupCtx, key) },
		retry.Context(cleanupCtx),
		retry.Attempts(uc.opts.CleanupAttempts),
		retry.Delay(uc.opts.CleanupDelay),
		retry.MaxJitter(uc.opts.CleanupDelay),
		retry.LastErrorOnly(true),
	)

	res := Result{Op: op, Key: key, Err: err}
	uc.logResult(ctx, res)
	return res
}

func (uc *CatalogUseCase) logResult(ctx context.Context, res Result) {
	if res.OK() {
		return
	}
	bestEffortFailures.WithLabelValues(res.Op).Inc()
	uc.logger.WithContext(ctx).Warn("best-effort step failed",
		zap.String("op", res.Op),
		zap.String("key", res.Key),
		zap.Error(res.Err))
}

func (uc *CatalogUseCase) invalidateStats(ctx context.Context, deltaFiles, deltaBytes int64) {
	if uc.stats == nil {
		return
	}
	uc.stats.Invalidate(ctx, deltaFiles, deltaBytes)
}

// emit 异步发送通知，失败只记录日志
func (uc *CatalogUseCase) emit(ctx context.Context, typ EventType, rec *FileRecord, previous string) {
	if uc.notifier == nil {
		return
	}
	event := Event{
		Type:     typ,
		File:     rec.Clone(),
		Previous: previous,
		Actor:    logger.GetUserID(ctx),
		At:       uc.now(),
	}
	task := func(taskCtx context.Context) {
		if err := uc.notifier.Notify(taskCtx, event); err != nil {
			uc.logger.Warn("failed to send file notification",
				zap.String("event", string(event.Type)),
				zap.String("id", event.File.ID),
				zap.Error(err))
		}
	}

	if uc.pool == nil {
		task(context.WithoutCancel(ctx))
		return
	}
	if err := uc.pool.SubmitWithPriority(workerpool.PriorityLow, task); err != nil {
		uc.logger.Warn("failed to schedule file notification",
			zap.String("event", string(typ)), zap.Error(err))
	}
}

func (uc *CatalogUseCase) validateContent(data []byte, name string, requireName bool) error {
	if requireName && name == "" {
		return newValidationError("originalName", "required")
	}
	if len(data) == 0 {
		return newValidationError("file", "empty content")
	}
	if int64(len(data)) > uc.opts.MaxUploadSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), uc.opts.MaxUploadSize)
	}
	return nil
}

func (uc *CatalogUseCase) classify(contentType, name string) (FileType, error) {
	fileType := ClassifyContentType(contentType, name)
	if fileType == FileTypeOther && !uc.opts.AllowOtherTypes {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
	}
	return fileType, nil
}

func normalizeAttrs(a Attrs) (Attrs, error) {
	a.Category = strings.TrimSpace(a.Category)
	a.SubCategory = strings.TrimSpace(a.SubCategory)
	a.Description = strings.TrimSpace(a.Description)
	a.UploadedBy = strings.TrimSpace(a.UploadedBy)

	if a.Category == "" {
		return Attrs{}, newValidationError("category", "required")
	}
	if a.Year == 0 {
		return Attrs{}, newValidationError("year", "required")
	}
	if !validYear(a.Year) {
		return Attrs{}, newValidationError("year", "must be between 1900 and 2100")
	}
	if a.Month < 0 || a.Month > 12 {
		return Attrs{}, newValidationError("month", "must be between 1 and 12")
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
	if !a.Status.Valid() {
		return Attrs{}, newValidationError("status", "unknown status")
	}
	a.Tags = NormalizeTags(a.Tags)
	return a, nil
}

func buildMetadataPatch(existing *FileRecord, in MetadataPatch) (*FilePatch, error) {
	patch := &FilePatch{}

	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return nil, newValidationError("category", "required")
		}
		if category != existing.Category {
			patch.Category = &category
		}
	}
	if in.SubCategory != nil {
		sub := strings.TrimSpace(*in.SubCategory)
		patch.SubCategory = &sub
	}
	if in.Year != nil {
		if !validYear(*in.Year) {
			return nil, newValidationError("year", "must be between 1900 and 2100")
		}
		patch.Year = in.Year
	}
	if in.Month != nil {
		if *in.Month < 0 || *in.Month > 12 {
			return nil, newValidationError("month", "must be between 1 and 12")
		}
		patch.Month = in.Month
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		patch.Description = &desc
	}
	if in.Tags != nil {
		tags := NormalizeTags(*in.Tags)
		patch.Tags = &tags
	}

	status := existing.Status
	if in.Status != nil && *in.Status != existing.Status {
		next := *in.Status
		if !next.Valid() {
			return nil, newValidationError("status", "unknown status")
		}
		if !existing.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, next)
		}
		status = next
		archived := next == StatusArchived
		patch.Status = &next
		patch.IsArchived = &archived
	}
	if in.IsArchived != nil {
		if status == StatusArchived && !*in.IsArchived {
			return nil, newValidationError("isArchived", "an archived document must change status to be unarchived")
		}
		archived := *in.IsArchived
		if patch.IsArchived != nil || archived != existing.IsArchived {
			patch.IsArchived = &archived
		}
	}
	return patch, nil
}

// objectKey files/<year>/<uuid><ext>
func objectKey(year int, id, ext string) string {
	return "files/" + strconv.Itoa(year) + "/" + id + ext
}

func contentTypeOrDefault(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return defaultContentType
	}
	return contentType
}
