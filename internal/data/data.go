package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/doc-catalog-backend/internal/conf"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/database"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/minio"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// Data 持有所有外部存储连接，由仓储层显式引用
type Data struct {
	DB     *database.DB
	Redis  *redis.Client
	MinIO  *minio.Client
	Pool   *workerpool.Pool
	Logger *logger.Logger
}

// NewData 初始化 PostgreSQL、Redis、MinIO 与后台 worker pool
func NewData(config *conf.Config, log *logger.Logger, models ...interface{}) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}
	if config.Database.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	redisClient, err := redis.New(&config.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	minioClient, err := minio.NewClient(&config.MinIO, log.Logger)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}
	if config.MinIO.CreateBucket {
		if err := minioClient.EnsureBucket(context.Background()); err != nil {
			_ = minioClient.Close()
			_ = redisClient.Close()
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
	}

	pool, err := workerpool.New(&config.WorkerPool, log.Named("workerpool").Logger)
	if err != nil {
		_ = minioClient.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init worker pool: %w", err)
	}

	d := &Data{
		DB:     db,
		Redis:  redisClient,
		MinIO:  minioClient,
		Pool:   pool,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		// 先停后台任务，再关闭它们依赖的连接
		pool.Shutdown()

		if err := minioClient.Close(); err != nil {
			log.Warn("close minio client failed", zap.Error(err))
		}
		if err := redisClient.Close(); err != nil {
			log.Warn("close redis client failed", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}

	return d, cleanup, nil
}

// HealthCheck 依次检查各存储连接
func (d *Data) HealthCheck(ctx context.Context) map[string]error {
	return map[string]error{
		"database": d.DB.HealthCheck(ctx),
		"redis":    d.Redis.Ping(ctx),
		"minio":    d.MinIO.Ping(ctx),
	}
}
