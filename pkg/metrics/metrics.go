package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics Prometheus 指标集合
type Metrics struct {
	// 认证
	LoginAttempts *prometheus.CounterVec // status: success / failure / locked / rate_limited
	Logouts       prometheus.Counter

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 数据访问
	SaveChanges   *prometheus.CounterVec // result: ok / error / conflict
	StagedEntries prometheus.Histogram

	// 业务
	UsersImported *prometheus.CounterVec // result: created / failed
	RateLimitHits *prometheus.CounterVec
}

// New 创建指标集合，reg 为 nil 时注册到默认 Registerer
// 测试中传入独立的 prometheus.NewRegistry() 避免重复注册
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "auth_login_attempts_total",
				Help:      "登录尝试次数（按结果）",
			},
			[]string{"status"},
		),
		Logouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "auth_logouts_total",
				Help:      "登出次数",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "http_requests_total",
				Help:      "HTTP 请求总数（按方法、路由、状态码）",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "srb",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP 请求耗时（秒）",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SaveChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "repository_save_changes_total",
				Help:      "工作单元提交次数（按结果）",
			},
			[]string{"result"},
		),
		StagedEntries: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "srb",
				Name:      "repository_staged_entries",
				Help:      "每次提交包含的暂存变更数",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		UsersImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "users_imported_total",
				Help:      "Excel 导入用户行数（按结果）",
			},
			[]string{"result"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "srb",
				Name:      "rate_limit_hits_total",
				Help:      "触发限流的请求数（按路由）",
			},
			[]string{"path"},
		),
	}
}

// Middleware 记录每个请求的次数与耗时
// 路由维度使用 c.FullPath()，未匹配路由统一记为 "unmatched"，避免标签基数失控
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveSave 记录一次工作单元提交
func (m *Metrics) ObserveSave(result string, staged int) {
	if m == nil {
		return
	}
	m.SaveChanges.WithLabelValues(result).Inc()
	if staged > 0 {
		m.StagedEntries.Observe(float64(staged))
	}
}
