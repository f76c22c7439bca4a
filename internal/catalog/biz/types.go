package biz

import (
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
)

// FileType 由上传时的 Content-Type 推导
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeExcel FileType = "excel"
	FileTypeCSV   FileType = "csv"
	FileTypeDocx  FileType = "docx"
	FileTypeOther FileType = "other"
)

// Valid 是否为已知类型
func (t FileType) Valid() bool {
	switch t {
	case FileTypePDF, FileTypeExcel, FileTypeCSV, FileTypeDocx, FileTypeOther:
		return true
	}
	return false
}

// Status 文档审核状态
type Status string

const (
	StatusDraft         Status = "Draft"
	StatusPendingReview Status = "PendingReview"
	StatusApproved      Status = "Approved"
	StatusArchived      Status = "Archived"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// 允许的状态迁移；同状态写入视为无变化
var statusTransitions = map[Status][]Status{
	StatusDraft:         {StatusPendingReview, StatusArchived},
	StatusPendingReview: {StatusDraft, StatusApproved, StatusArchived},
	StatusApproved:      {StatusPendingReview, StatusArchived},
	StatusArchived:      {StatusDraft},
}

// CanTransitionTo 检查 s -> next 是否合法
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	return lo.Contains(statusTransitions[s], next)
}

// FileRecord 文件元数据
type FileRecord struct {
	ID           string
	OriginalName string
	FileType     FileType
	ContentType  string
	Category     string
	SubCategory  string
	Year         int
	Month        int // 0 表示未设置
	Path         string
	Size         int64
	Description  string
	UploadedBy   string
	Status       Status
	Tags         []string
	Version      int
	IsArchived   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone 深拷贝，缓存中的记录不与调用方共享切片
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

// FilePatch 仓储层的部分更新；nil 字段不写入
type FilePatch struct {
	OriginalName *string
	FileType     *FileType
	ContentType  *string
	Path         *string
	Size         *int64
	BumpVersion  bool

	Category    *string
	SubCategory *string
	Year        *int
	Month       *int
	Description *string
	Tags        *[]string
	Status      *Status
	IsArchived  *bool
}

// Empty 是否没有任何需要写入的字段
func (p *FilePatch) Empty() bool {
	return p.OriginalName == nil && p.FileType == nil && p.ContentType == nil &&
		p.Path == nil && p.Size == nil && !p.BumpVersion &&
		p.Category == nil && p.SubCategory == nil && p.Year == nil && p.Month == nil &&
		p.Description == nil && p.Tags == nil && p.Status == nil && p.IsArchived == nil
}

// Attrs 上传时的业务属性
type Attrs struct {
	Category    string
	SubCategory string
	Year        int
	Month       int
	Description string
	Tags        []string
	Status      Status
	UploadedBy  string
}

// UploadInput 上传参数；Data 已由传输层完整读入内存
type UploadInput struct {
	Data         []byte
	ContentType  string
	OriginalName string
	Attrs        Attrs
}

// MetadataPatch 元数据修改，不涉及文件内容
type MetadataPatch struct {
	Category    *string
	SubCategory *string
	Year        *int
	Month       *int
	Description *string
	Tags        *[]string
	Status      *Status
	IsArchived  *bool
}

// BlobInfo 对象存储中的对象
type BlobInfo struct {
	Key  string
	Size int64
}

// Download 下载结果，调用方负责关闭 Content
type Download struct {
	Content     io.ReadCloser
	ContentType string
	FileName    string
	Size        int64
}

// Result 尽力而为步骤的结果：只记录日志，不向调用方传播
type Result struct {
	Op  string
	Key string
	Err error
}

// OK 步骤是否成功
func (r Result) OK() bool { return r.Err == nil }

// NormalizeTags 去除首尾空白、空值与重复项，保持首次出现顺序
func NormalizeTags(tags []string) []string {
	out := lo.Uniq(lo.FilterMap(tags, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}
