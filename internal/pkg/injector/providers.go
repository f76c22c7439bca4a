package injector

import (
	"github.com/lk2023060901/doc-catalog-backend/internal/auth"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	catdata "github.com/lk2023060901/doc-catalog-backend/internal/catalog/data"
	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/service"
	"github.com/lk2023060901/doc-catalog-backend/internal/conf"
	"github.com/lk2023060901/doc-catalog-backend/internal/data"
	emailservice "github.com/lk2023060901/doc-catalog-backend/internal/email/service"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/doc-catalog-backend/internal/server"
)

// Data layer

func provideData(config *conf.Config, log *logger.Logger) (*data.Data, func(), error) {
	return data.NewData(config, log, &catdata.FilePO{})
}

func provideWorkerPool(d *data.Data) *workerpool.Pool {
	return d.Pool
}

// Repositories and stores

func provideFileRepo(d *data.Data) biz.FileRepo {
	return catdata.NewFileRepo(d.DB)
}

func provideBlobStore(d *data.Data) biz.BlobStore {
	return catdata.NewBlobStore(d.MinIO)
}

func provideStatsStore(d *data.Data, config *conf.Config) biz.StatsStore {
	return catdata.NewStatsStore(d.Redis, config.Catalog.StatsNamespace)
}

func provideRecentStore(d *data.Data) biz.RecentStore {
	return catdata.NewRecentStore(d.Redis)
}

// provideNotifier 邮件关闭时返回 nil 接口，而不是持有 nil 指针的接口
func provideNotifier(config *conf.Config, log *logger.Logger) (biz.Notifier, error) {
	if !config.Email.Enabled {
		return nil, nil
	}
	sender, err := emailservice.NewEmailService(&config.Email.SMTP)
	if err != nil {
		return nil, err
	}
	return catdata.NewEmailNotifier(sender, config.Email.Recipients, log), nil
}

// Use cases

func provideCatalogOptions(config *conf.Config) biz.CatalogOptions {
	opts := biz.DefaultCatalogOptions()
	c := config.Catalog
	if c.MaxUploadSize > 0 {
		opts.MaxUploadSize = c.MaxUploadSize
	}
	opts.AllowOtherTypes = c.AllowOtherTypes
	if c.RecordCacheSize > 0 {
		opts.RecordCacheSize = c.RecordCacheSize
	}
	if c.RecordCacheTTL > 0 {
		opts.RecordCacheTTL = c.RecordCacheTTL
	}
	if c.DownloadURLExpiry > 0 {
		opts.DownloadURLExpiry = c.DownloadURLExpiry
	}
	return opts
}

func provideStatsCache(store biz.StatsStore, blobs biz.BlobStore, pool *workerpool.Pool, config *conf.Config, log *logger.Logger) *biz.StatsCache {
	return biz.NewStatsCache(store, blobs, pool, config.Catalog.StatsStaleness, log)
}

func provideRecentUseCase(store biz.RecentStore, repo biz.FileRepo, config *conf.Config, log *logger.Logger) *biz.RecentUseCase {
	return biz.NewRecentUseCase(store, repo, config.Catalog.RecentLimit, log)
}

// HTTP services

func provideJWTManager(config *conf.Config) *auth.JWTManager {
	return auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
}

func provideCatalogService(
	catalog *biz.CatalogUseCase,
	stats *biz.StatsCache,
	recent *biz.RecentUseCase,
	opts biz.CatalogOptions,
	log *logger.Logger,
) *service.CatalogService {
	return service.NewCatalogService(catalog, stats, recent, opts.MaxUploadSize, log)
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	d *data.Data,
	stats *biz.StatsCache,
	httpServer *server.HTTPServer,
) *App {
	return &App{
		Config:     config,
		Logger:     log,
		Data:       d,
		Stats:      stats,
		HTTPServer: httpServer,
	}
}
