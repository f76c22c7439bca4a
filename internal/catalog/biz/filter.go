package biz

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// 分页大小
const (
	DefaultPageSize = 16
	MaxPageSize     = 100
)

// Filter 列表过滤条件；零值字段表示不过滤
type Filter struct {
	Category    string
	SubCategory string
	Year        int
	Month       int
	Status      Status
	FileType    FileType
	UploadedBy  string
	Tag         string
	// Search 对 original_name、description、category 做不区分大小写的子串匹配
	Search string
}

// 查询参数名到字段的映射；别名指向同一字段
var filterKeys = map[string]string{
	"category":     "category",
	"subCategory":  "subCategory",
	"sub_category": "subCategory",
	"year":         "year",
	"month":        "month",
	"status":       "status",
	"fileType":     "fileType",
	"file_type":    "fileType",
	"uploadedBy":   "uploadedBy",
	"uploaded_by":  "uploadedBy",
	"tag":          "tag",
	"search":       "search",
}

// ParseFilter 把查询参数转换为 Filter。未知键与空值被丢弃；
// year/month/status/fileType 无法解析时返回指明字段的 ValidationError。
func ParseFilter(params map[string]string) (Filter, error) {
	var f Filter
	for key, raw := range params {
		field, ok := filterKeys[key]
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		switch field {
		case "category":
			f.Category = value
		case "subCategory":
			f.SubCategory = value
		case "year":
			year, err := strconv.Atoi(value)
			if err != nil || !validYear(year) {
				return Filter{}, newValidationError("year", "must be an integer between 1900 and 2100")
			}
			f.Year = year
		case "month":
			month, err := strconv.Atoi(value)
			if err != nil || month < 1 || month > 12 {
				return Filter{}, newValidationError("month", "must be an integer between 1 and 12")
			}
			f.Month = month
		case "status":
			status := Status(value)
			if !status.Valid() {
				return Filter{}, newValidationError("status", "unknown status")
			}
			f.Status = status
		case "fileType":
			ft := FileType(strings.ToLower(value))
			if !ft.Valid() {
				return Filter{}, newValidationError("fileType", "unknown file type")
			}
			f.FileType = ft
		case "uploadedBy":
			f.UploadedBy = value
		case "tag":
			f.Tag = value
		case "search":
			f.Search = value
		}
	}
	return f, nil
}

func validYear(year int) bool {
	return year >= 1900 && year <= 2100
}

// Cursor 上一页最后一条记录的排序键
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorPayload struct {
	T  string `json:"t"`
	ID string `json:"id"`
}

// Encode 编码为不透明的 URL 安全字符串
func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorPayload{
		T:  c.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID: c.ID,
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor 解析 Encode 生成的游标
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return nil, newValidationError("cursor", "malformed token")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return nil, newValidationError("cursor", "malformed token")
	}
	t, err := time.Parse(time.RFC3339Nano, p.T)
	if err != nil {
		return nil, newValidationError("cursor", "malformed timestamp")
	}
	return &Cursor{CreatedAt: t.UTC(), ID: p.ID}, nil
}

// PageRequest 分页参数；Cursor 为 nil 表示第一页
type PageRequest struct {
	Cursor *Cursor
	Limit  int
}

// NewPageRequest 解析游标并规范化 limit：<=0 取默认值，超过上限时截断
func NewPageRequest(cursor string, limit int) (PageRequest, error) {
	req := PageRequest{Limit: ClampLimit(limit)}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return PageRequest{}, err
		}
		req.Cursor = c
	}
	return req, nil
}

// ClampLimit 规范化分页大小
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Page 一页结果；NextCursor 为 nil 表示没有更多数据
type Page struct {
	Items      []*FileRecord
	NextCursor *string
}

// NewPage 由多取一条的查询结果构造分页：rows 超过 limit 时才生成下一页游标
func NewPage(rows []*FileRecord, limit int) *Page {
	if len(rows) <= limit {
		return &Page{Items: rows}
	}
	items := rows[:limit]
	last := items[len(items)-1]
	next := Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	return &Page{Items: items, NextCursor: &next}
}
