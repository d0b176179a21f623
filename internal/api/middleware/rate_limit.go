package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/response"
)

// WindowLimiter 滑动窗口限流（由 redis.Client 实现）
type WindowLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitOptions 限流参数
type RateLimitOptions struct {
	Limit  int           // 窗口内允许的最大请求数
	Window time.Duration // 窗口时长
}

// RateLimit 按 客户端IP+路由 限流
// remote 非 nil 时使用 Redis 滑动窗口（多实例共享计数），Redis 出错时降级到进程内令牌桶；
// remote 为 nil 时只使用进程内令牌桶
func RateLimit(remote WindowLimiter, opts RateLimitOptions, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(opts)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		allowed := true
		if remote != nil {
			ok, err := remote.CheckRateLimit(c.Request.Context(), key, opts.Limit, opts.Window)
			if err != nil {
				logger.Warn("Redis 限流失败，降级为本地限流", zap.Error(err))
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			if m != nil {
				m.RateLimitHits.WithLabelValues(c.FullPath()).Inc()
			}
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			return
		}

		c.Next()
	}
}

// maxLocalKeys 本地限流器上限，超过后整体重建
const maxLocalKeys = 10000

type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(opts RateLimitOptions) *localLimiter {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	window := opts.Window
	if window <= 0 {
		window = time.Minute
	}
	return &localLimiter{
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLocalKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
