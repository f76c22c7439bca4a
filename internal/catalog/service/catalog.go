package service

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/doc-catalog-backend/internal/auth/middleware"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	pkgminio "github.com/lk2023060901/doc-catalog-backend/internal/pkg/minio"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// multipart 表单除文件外的其余字段预留的大小
const formOverhead = 1 << 20

// 分页参数不参与过滤
var pagingKeys = map[string]struct{}{"cursor": {}, "limit": {}}

// CatalogService 文件目录 HTTP 接口
type CatalogService struct {
	catalog       *biz.CatalogUseCase
	stats         *biz.StatsCache
	recent        *biz.RecentUseCase
	maxUploadSize int64
	logger        *logger.Logger
}

// NewCatalogService 创建文件目录接口；recent 为 nil 时不记录浏览
func NewCatalogService(
	catalog *biz.CatalogUseCase,
	stats *biz.StatsCache,
	recent *biz.RecentUseCase,
	maxUploadSize int64,
	log *logger.Logger,
) *CatalogService {
	return &CatalogService{
		catalog:       catalog,
		stats:         stats,
		recent:        recent,
		maxUploadSize: maxUploadSize,
		logger:        log.Named("catalog.service"),
	}
}

// UploadFile POST /files
func (s *CatalogService) UploadFile(c *gin.Context) {
	data, name, contentType, err := s.readFilePart(c)
	if err != nil {
		handleError(c, err)
		return
	}

	attrs, err := parseAttrs(c)
	if err != nil {
		handleError(c, err)
		return
	}
	if userID, ok := middleware.GetUserID(c); ok {
		attrs.UploadedBy = userID
	}

	rec, err := s.catalog.Upload(c.Request.Context(), biz.UploadInput{
		Data:         data,
		ContentType:  contentType,
		OriginalName: name,
		Attrs:        attrs,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, toFileResponse(rec))
}

// ListFiles GET /files，游标分页
func (s *CatalogService) ListFiles(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			handleError(c, &biz.ValidationError{Field: "limit", Reason: "must be an integer"})
			return
		}
	}
	req, err := biz.NewPageRequest(c.Query("cursor"), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	page, err := s.catalog.ListPage(c.Request.Context(), filter, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, &PageResponse{
		Items:      toFileResponses(page.Items),
		NextCursor: page.NextCursor,
	})
}

// ListAllFiles GET /files/all，不分页
func (s *CatalogService) ListAllFiles(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}

	recs, err := s.catalog.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, &ListResponse{Items: toFileResponses(recs), Total: len(recs)})
}

// GetFile GET /files/:id；已登录用户顺带记录一次浏览
func (s *CatalogService) GetFile(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	if userID, ok := middleware.GetUserID(c); ok && s.recent != nil {
		if err := s.recent.Record(c.Request.Context(), userID, id); err != nil {
			s.logger.WithContext(c.Request.Context()).Warn("failed to record recent view",
				zap.String("file_id", id), zap.Error(err))
		}
	}
	response.Success(c, toFileResponse(rec))
}

// ReplaceContent PUT /files/:id/content
func (s *CatalogService) ReplaceContent(c *gin.Context) {
	data, name, contentType, err := s.readFilePart(c)
	if err != nil {
		handleError(c, err)
		return
	}

	rec, err := s.catalog.Replace(c.Request.Context(), c.Param("id"), data, contentType, name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toFileResponse(rec))
}

// UpdateMetadata PATCH /files/:id
func (s *CatalogService) UpdateMetadata(c *gin.Context) {
	var req UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	rec, err := s.catalog.UpdateMetadata(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toFileResponse(rec))
}

// DeleteFile DELETE /files/:id
func (s *CatalogService) DeleteFile(c *gin.Context) {
	if err := s.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadFile GET /files/:id/download
func (s *CatalogService) DownloadFile(c *gin.Context) {
	dl, err := s.catalog.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer dl.Content.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Content, map[string]string{
		"Content-Disposition": pkgminio.ContentDisposition(dl.FileName),
	})
}

// DownloadURL GET /files/:id/url?expiresIn=<秒>
func (s *CatalogService) DownloadURL(c *gin.Context) {
	var expiry time.Duration
	if raw := strings.TrimSpace(c.Query("expiresIn")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			handleError(c, &biz.ValidationError{Field: "expiresIn", Reason: "must be a positive number of seconds"})
			return
		}
		expiry = time.Duration(secs) * time.Second
	}

	url, expiry, err := s.catalog.DownloadURL(c.Request.Context(), c.Param("id"), expiry)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, &DownloadURLResponse{
		URL:       url,
		ExpiresIn: int64(expiry / time.Second),
		ExpiresAt: time.Now().UTC().Add(expiry),
	})
}

// readFilePart 读取 multipart 的 file 字段，整体读入内存
func (s *CatalogService) readFilePart(c *gin.Context) ([]byte, string, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize+formOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", "", biz.ErrFileTooLarge
		}
		return nil, "", "", &biz.ValidationError{Field: "file", Reason: "missing multipart field 'file'"}
	}
	defer file.Close()

	if header.Size > s.maxUploadSize {
		return nil, "", "", biz.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		return nil, "", "", &biz.ValidationError{Field: "file", Reason: "failed to read upload"}
	}
	return data, header.Filename, header.Header.Get("Content-Type"), nil
}

func parseAttrs(c *gin.Context) (biz.Attrs, error) {
	year, err := formInt(c, "year")
	if err != nil {
		return biz.Attrs{}, err
	}
	month, err := formInt(c, "month")
	if err != nil {
		return biz.Attrs{}, err
	}

	var tags []string
	for _, v := range c.PostFormArray("tags") {
		tags = append(tags, strings.Split(v, ",")...)
	}

	return biz.Attrs{
		Category:    c.PostForm("category"),
		SubCategory: c.PostForm("subCategory"),
		Year:        year,
		Month:       month,
		Description: c.PostForm("description"),
		Tags:        tags,
		Status:      biz.Status(strings.TrimSpace(c.PostForm("status"))),
	}, nil
}

func formInt(c *gin.Context, field string) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &biz.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

// parseFilter 取每个查询参数的第一个值交给 biz.ParseFilter
func parseFilter(c *gin.Context) (biz.Filter, error) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if _, skip := pagingKeys[key]; skip || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return biz.ParseFilter(params)
}
