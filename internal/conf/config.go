package conf

import (
	"fmt"
	"strings"
	"time"

	emailtypes "github.com/lk2023060901/doc-catalog-backend/internal/email/types"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/database"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/minio"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 CATALOG_DATABASE_HOST
const EnvPrefix = "CATALOG"

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   database.Config   `mapstructure:"database"`
	Redis      redis.Config      `mapstructure:"redis"`
	MinIO      minio.Config      `mapstructure:"minio"`
	Log        logger.Config     `mapstructure:"log"`
	Catalog    CatalogConfig     `mapstructure:"catalog"`
	Email      EmailConfig       `mapstructure:"email"`
	Auth       AuthConfig        `mapstructure:"auth"`
	WorkerPool workerpool.Config `mapstructure:"workerpool"`
}

type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	UploadRateLimit RateLimitConfig `mapstructure:"upload_rate_limit"`
}

// RateLimitConfig 上传接口限流；MaxRequests 为 0 时关闭
type RateLimitConfig struct {
	MaxRequests   int    `mapstructure:"max_requests"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	Strategy      string `mapstructure:"strategy"` // ip, user, endpoint
}

// CatalogConfig 文件目录业务配置
type CatalogConfig struct {
	MaxUploadSize        int64         `mapstructure:"max_upload_size"`
	AllowOtherTypes      bool          `mapstructure:"allow_other_types"`
	RecentLimit          int           `mapstructure:"recent_limit"`
	StatsNamespace       string        `mapstructure:"stats_namespace"`
	StatsStaleness       time.Duration `mapstructure:"stats_staleness"`
	StatsRefreshInterval time.Duration `mapstructure:"stats_refresh_interval"`
	RecordCacheSize      int           `mapstructure:"record_cache_size"` // 0 表示关闭
	RecordCacheTTL       time.Duration `mapstructure:"record_cache_ttl"`
	DownloadURLExpiry    time.Duration `mapstructure:"download_url_expiry"`
}

// EmailConfig SMTP 通知配置；Enabled 为 false 时不发送任何邮件
type EmailConfig struct {
	Enabled    bool                   `mapstructure:"enabled"`
	SMTP       emailtypes.EmailConfig `mapstructure:"smtp"`
	Recipients []string               `mapstructure:"recipients"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig 读取 YAML 配置；环境变量覆盖同名键
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.MinIO.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.upload_rate_limit.window_seconds", 60)
	v.SetDefault("server.upload_rate_limit.strategy", "user")

	db := database.DefaultConfig()
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.sslmode", db.SSLMode)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.log_level", db.LogLevel)
	v.SetDefault("database.slow_threshold", db.SlowThreshold)
	v.SetDefault("database.auto_migrate", db.AutoMigrate)
	v.SetDefault("database.tx_retries", db.TxRetries)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.key_prefix", rc.KeyPrefix)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)

	mc := minio.DefaultConfig()
	v.SetDefault("minio.endpoint", mc.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", mc.Bucket)
	v.SetDefault("minio.bucket_lookup", string(mc.BucketLookup))
	v.SetDefault("minio.create_bucket", mc.CreateBucket)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.service", lc.Service)
	v.SetDefault("log.enable_caller", lc.EnableCaller)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.max_size", lc.File.MaxSize)
	v.SetDefault("log.file.max_age", lc.File.MaxAge)
	v.SetDefault("log.file.max_backups", lc.File.MaxBackups)

	v.SetDefault("catalog.max_upload_size", 100<<20)
	v.SetDefault("catalog.recent_limit", 8)
	v.SetDefault("catalog.stats_namespace", "default")
	v.SetDefault("catalog.stats_staleness", 10*time.Minute)
	v.SetDefault("catalog.stats_refresh_interval", 10*time.Minute)
	v.SetDefault("catalog.record_cache_size", 0)
	v.SetDefault("catalog.record_cache_ttl", time.Minute)
	v.SetDefault("catalog.download_url_expiry", 15*time.Minute)

	v.SetDefault("email.smtp.smtp_port", 587)

	// 未设默认值的键不会被 AutomaticEnv 覆盖
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "doc-catalog-backend")

	wp := workerpool.DefaultConfig()
	v.SetDefault("workerpool.workers", wp.Workers)
	v.SetDefault("workerpool.queue_size", wp.QueueSize)
	v.SetDefault("workerpool.enable_priority", wp.EnablePriority)
	v.SetDefault("workerpool.shutdown_timeout", wp.ShutdownTimeout)
}

// Validate 校验各子配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.MinIO.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Catalog.MaxUploadSize <= 0 {
		return fmt.Errorf("catalog: max_upload_size must be positive")
	}
	if c.Catalog.RecentLimit <= 0 {
		return fmt.Errorf("catalog: recent_limit must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: jwt_secret is required")
	}
	if c.Email.Enabled && c.Email.SMTP.SMTPHost == "" {
		return fmt.Errorf("email: smtp_host is required when enabled")
	}
	return nil
}
