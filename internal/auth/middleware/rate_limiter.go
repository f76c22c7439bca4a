package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/lk2023060901/doc-catalog-backend/internal/pkg/errors"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/redis"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/response"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// 时间窗口内允许的最大请求数
	MaxRequests int
	// 时间窗口（秒）
	WindowSeconds int
	// 限流策略：user, endpoint, ip（默认）
	Strategy string
}

// 原子性滑动窗口：成员为唯一请求 ID，分数为毫秒时间戳
var slidingWindow = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1, now + window}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')[2]
return {0, 0, tonumber(oldest) + window}
`)

// RateLimiter 基于 Redis 的滑动窗口限流中间件；MaxRequests <= 0 时不限流
func RateLimiter(redisClient *redis.Client, cfg RateLimiterConfig, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 60
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "ip"
	}

	return func(c *gin.Context) {
		key := redisClient.Key(buildRateLimitKey(c, cfg.Strategy)...)

		allowed, remaining, resetAt, err := checkRateLimit(c.Request.Context(), redisClient, key, cfg)
		if err != nil {
			// 限流器故障时，降级允许请求通过
			log.Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt/1000, 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(cfg.WindowSeconds))
			response.ErrorWithCode(c, apperrors.ErrTooManyRequests,
				fmt.Sprintf("try again in %d seconds", cfg.WindowSeconds))
			c.Abort()
			return
		}

		c.Next()
	}
}

// buildRateLimitKey 构建限流 key
func buildRateLimitKey(c *gin.Context, strategy string) []string {
	switch strategy {
	case "user":
		// 未认证用户回退到 IP 限流
		if userID, ok := GetUserID(c); ok {
			return []string{"rate_limit", "user", userID}
		}
		return []string{"rate_limit", "ip", c.ClientIP()}
	case "endpoint":
		return []string{"rate_limit", "endpoint", c.FullPath(), c.ClientIP()}
	default:
		return []string{"rate_limit", "ip", c.ClientIP()}
	}
}

func checkRateLimit(ctx context.Context, redisClient *redis.Client, key string, cfg RateLimiterConfig) (allowed bool, remaining int, resetAt int64, err error) {
	now := time.Now().UnixMilli()
	window := int64(cfg.WindowSeconds) * 1000

	result, err := slidingWindow.Run(ctx, redisClient.Universal(), []string{key},
		now, window, cfg.MaxRequests, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(result) != 3 {
		return false, 0, 0, fmt.Errorf("invalid rate limit result")
	}
	return result[0] == 1, int(result[1]), result[2], nil
}
