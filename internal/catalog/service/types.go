package service

import (
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/samber/lo"
)

// FileResponse 文件元数据
type FileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	FileType     string    `json:"fileType"`
	ContentType  string    `json:"contentType"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"subCategory,omitempty"`
	Year         int       `json:"year"`
	Month        int       `json:"month,omitempty"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Description  string    `json:"description,omitempty"`
	UploadedBy   string    `json:"uploadedBy,omitempty"`
	Status       string    `json:"status"`
	Tags         []string  `json:"tags"`
	Version      int       `json:"version"`
	IsArchived   bool      `json:"isArchived"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PageResponse 一页文件
type PageResponse struct {
	Items      []*FileResponse `json:"items"`
	NextCursor *string         `json:"nextCursor"`
}

// ListResponse 不分页的文件列表
type ListResponse struct {
	Items []*FileResponse `json:"items"`
	Total int             `json:"total"`
}

// UpdateMetadataRequest PATCH /files/:id
type UpdateMetadataRequest struct {
	Category    *string   `json:"category"`
	SubCategory *string   `json:"subCategory"`
	Year        *int      `json:"year"`
	Month       *int      `json:"month"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
	IsArchived  *bool     `json:"isArchived"`
}

func (r *UpdateMetadataRequest) toPatch() biz.MetadataPatch {
	p := biz.MetadataPatch{
		Category:    r.Category,
		SubCategory: r.SubCategory,
		Year:        r.Year,
		Month:       r.Month,
		Description: r.Description,
		Tags:        r.Tags,
		IsArchived:  r.IsArchived,
	}
	if r.Status != nil {
		status := biz.Status(*r.Status)
		p.Status = &status
	}
	return p
}

// DownloadURLResponse 预签名下载地址
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresIn int64     `json:"expiresIn"` // 秒
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageStatsResponse 存储用量
type StorageStatsResponse struct {
	TotalFiles     int64      `json:"totalFiles"`
	TotalSizeBytes int64      `json:"totalSizeBytes"`
	TotalSize      string     `json:"totalSize"`
	LastUpdated    *time.Time `json:"lastUpdated"`
	Estimated      bool       `json:"estimated"`
	State          string     `json:"state"`
	Refreshing     bool       `json:"refreshing"`
}

// RecentFileResponse 最近浏览的文件
type RecentFileResponse struct {
	*FileResponse
	ViewedAt time.Time `json:"viewedAt"`
}

func toFileResponse(rec *biz.FileRecord) *FileResponse {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &FileResponse{
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
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func toFileResponses(recs []*biz.FileRecord) []*FileResponse {
	return lo.Map(recs, func(r *biz.FileRecord, _ int) *FileResponse { return toFileResponse(r) })
}

func toStatsResponse(s biz.StatsSnapshot) *StorageStatsResponse {
	resp := &StorageStatsResponse{
		TotalFiles:     s.TotalFiles,
		TotalSizeBytes: s.TotalSizeBytes,
		TotalSize:      biz.FormatSize(s.TotalSizeBytes),
		Estimated:      s.Estimated,
		State:          string(s.State),
		Refreshing:     s.Refreshing,
	}
	if !s.LastUpdated.IsZero() {
		at := s.LastUpdated
		resp.LastUpdated = &at
	}
	return resp
}
