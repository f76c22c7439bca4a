package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/database"
	"gorm.io/gorm"
)

// FilePO 文件元数据表
type FilePO struct {
	ID           string `gorm:"column:id;size:36;primaryKey;index:idx_files_created_id,priority:2"`
	OriginalName string `gorm:"column:original_name;size:255;not null"`
	FileType     string `gorm:"column:file_type;size:16;not null;index:idx_files_file_type"`
	ContentType  string `gorm:"column:content_type;size:255;not null"`
	Category     string `gorm:"column:category;size:100;not null;index:idx_files_category"`
	SubCategory  string `gorm:"column:sub_category;size:100;not null;default:''"`
	Year         int    `gorm:"column:year;not null;index:idx_files_year"`
	Month        int    `gorm:"column:month;not null;default:0"`
	Path         string `gorm:"column:path;size:500;not null;uniqueIndex:idx_files_path"`
	Size         int64  `gorm:"column:size;not null"`
	Description  string `gorm:"column:description;type:text"`
	UploadedBy   string `gorm:"column:uploaded_by;size:100;index:idx_files_uploaded_by"`
	Status       string `gorm:"column:status;size:32;not null;index:idx_files_status"`
	// Tags JSON 数组文本，按 tag 过滤时做子串匹配
	Tags       string `gorm:"column:tags;type:text;not null"`
	Version    int    `gorm:"column:version;not null;default:1"`
	IsArchived bool   `gorm:"column:is_archived;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_files_created_id,priority:1"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileRepo 基于 gorm 的 biz.FileRepo 实现
type FileRepo struct {
	db *database.DB
}

// NewFileRepo 创建文件仓储
func NewFileRepo(db *database.DB) *FileRepo {
	return &FileRepo{db: db}
}

// Create 写入一条记录
func (r *FileRepo) Create(ctx context.Context, rec *biz.FileRecord) error {
	po, err := toPO(rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).GetDB().Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return fmt.Errorf("file %s already exists: %w", rec.ID, err)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取记录
func (r *FileRepo) GetByID(ctx context.Context, id string) (*biz.FileRecord, error) {
	var po FilePO
	err := r.db.WithContext(ctx).GetDB().Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return toDomain(&po), nil
}

// GetByIDs 批量获取记录
func (r *FileRepo) GetByIDs(ctx context.Context, ids []string) ([]*biz.FileRecord, error) {
	if len(ids) == 0 {
		return []*biz.FileRecord{}, nil
	}

	var pos []FilePO
	if err := r.db.WithContext(ctx).GetDB().Where("id IN ?", ids).Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to get files: %w", err)
	}

	recs := make([]*biz.FileRecord, len(pos))
	for i := range pos {
		recs[i] = toDomain(&pos[i])
	}
	return recs, nil
}

// Update 在事务内按 patch 更新并返回最新记录
func (r *FileRepo) Update(ctx context.Context, id string, patch *biz.FilePatch) (*biz.FileRecord, error) {
	updates, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}
	updates["updated_at"] = time.Now().UTC().Truncate(time.Microsecond)

	var po FilePO
	err = r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Model(&FilePO{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return biz.ErrFileNotFound
		}
		return tx.Where("id = ?", id).First(&po).Error
	})
	if err != nil {
		if errors.Is(err, biz.ErrFileNotFound) || database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return toDomain(&po), nil
}

// Delete 删除记录；幂等，记录不存在时同样返回 nil
func (r *FileRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).GetDB().Where("id = ?", id).Delete(&FilePO{}).Error; err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Query 过滤与搜索都在 SQL 中完成，之后才按 (created_at, id) 游标分页。
// 多取一条用于判断是否还有下一页。
func (r *FileRepo) Query(ctx context.Context, f biz.Filter, page biz.PageRequest) (*biz.Page, error) {
	limit := biz.ClampLimit(page.Limit)

	q := r.db.WithContext(ctx).GetDB().Model(&FilePO{}).Scopes(filterScopes(f)...)
	if c := page.Cursor; c != nil {
		at := c.CreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, c.ID)
	}

	var pos []FilePO
	err := q.Scopes(database.OrderBy(true, "created_at", "id")).
		Limit(limit + 1).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}

	rows := make([]*biz.FileRecord, len(pos))
	for i := range pos {
		rows[i] = toDomain(&pos[i])
	}
	return biz.NewPage(rows, limit), nil
}

func filterScopes(f biz.Filter) []database.Scope {
	return []database.Scope{
		database.WhereIf(f.Category != "", "category = ?", f.Category),
		database.WhereIf(f.SubCategory != "", "sub_category = ?", f.SubCategory),
		database.WhereIf(f.Year != 0, "year = ?", f.Year),
		database.WhereIf(f.Month != 0, "month = ?", f.Month),
		database.WhereIf(f.Status != "", "status = ?", string(f.Status)),
		database.WhereIf(f.FileType != "", "file_type = ?", string(f.FileType)),
		database.WhereIf(f.UploadedBy != "", "uploaded_by = ?", f.UploadedBy),
		database.WhereIf(f.Tag != "", `tags LIKE ? ESCAPE '\'`, tagPattern(f.Tag)),
		database.ContainsFold(f.Search, "original_name", "description", "category"),
	}
}

// tagPattern 匹配 JSON 数组中的完整元素
func tagPattern(tag string) string {
	quoted, _ := json.Marshal(tag)
	return "%" + database.EscapeLike(string(quoted)) + "%"
}

func patchColumns(p *biz.FilePatch) (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.OriginalName != nil {
		cols["original_name"] = *p.OriginalName
	}
	if p.FileType != nil {
		cols["file_type"] = string(*p.FileType)
	}
	if p.ContentType != nil {
		cols["content_type"] = *p.ContentType
	}
	if p.Path != nil {
		cols["path"] = *p.Path
	}
	if p.Size != nil {
		cols["size"] = *p.Size
	}
	if p.BumpVersion {
		cols["version"] = gorm.Expr("version + 1")
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.SubCategory != nil {
		cols["sub_category"] = *p.SubCategory
	}
	if p.Year != nil {
		cols["year"] = *p.Year
	}
	if p.Month != nil {
		cols["month"] = *p.Month
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Tags != nil {
		tags, err := encodeTags(*p.Tags)
		if err != nil {
			return nil, err
		}
		cols["tags"] = tags
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.IsArchived != nil {
		cols["is_archived"] = *p.IsArchived
	}
	return cols, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}

func toPO(rec *biz.FileRecord) (*FilePO, error) {
	tags, err := encodeTags(rec.Tags)
	if err != nil {
		return nil, err
	}
	return &FilePO{
		ID:           rec.ID,
		OriginalName: rec.OriginalName,
		FileType:     string(rec.FileType),
		ContentType:  rec.ContentType,
		Category:     rec.Category,
		SubCategory:  rec.SubCategory,
		Year:         rec.Year,
		Month:        rec.Month,
		Path:         rec.Path,
		Size:         rec.Size,
		Description:  rec.Description,
		UploadedBy:   rec.UploadedBy,
		Status:       string(rec.Status),
		Tags:         tags,
		Version:      rec.Version,
		IsArchived:   rec.IsArchived,
		CreatedAt:    rec.CreatedAt.UTC(),
		UpdatedAt:    rec.UpdatedAt.UTC(),
	}, nil
}

func toDomain(po *FilePO) *biz.FileRecord {
	tags := []string{}
	if po.Tags != "" {
		// 损坏的 tags 不影响记录本身的读取
		_ = json.Unmarshal([]byte(po.Tags), &tags)
	}
	return &biz.FileRecord{
		ID:           po.ID,
		OriginalName: po.OriginalName,
		FileType:     biz.FileType(po.FileType),
		ContentType:  po.ContentType,
		Category:     po.Category,
		SubCategory:  po.SubCategory,
		Year:         po.Year,
		Month:        po.Month,
		Path:         po.Path,
		Size:         po.Size,
		Description:  po.Description,
		UploadedBy:   po.UploadedBy,
		Status:       biz.Status(po.Status),
		Tags:         tags,
		Version:      po.Version,
		IsArchived:   po.IsArchived,
		CreatedAt:    po.CreatedAt.UTC(),
		UpdatedAt:    po.UpdatedAt.UTC(),
	}
}
