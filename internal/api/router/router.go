package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/api/handler"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/api/middleware"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/currentuser"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/redis"
)

// Deps 路由所需的基础设施
type Deps struct {
	JWT     *jwt.Manager
	Users   currentuser.UserLookup
	Redis   *redis.Client // 可为 nil：跳过黑名单，限流退化为进程内
	DB      *gorm.DB      // 健康检查使用，可为 nil
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, d Deps) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// redis.Client 为 nil 时不能装进接口，否则接口本身非 nil
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.WindowLimiter
	)
	if d.Redis != nil {
		blacklist = d.Redis
		limiter = d.Redis
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(d.Logger, "/health", "/metrics"))
	r.Use(middleware.SecurityHeaders(cfg.Server.IsProduction()))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// ── 健康检查 ──
	r.GET("/health", healthHandler(d))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, middleware.RateLimitOptions{
				Limit:  cfg.RateLimit.LoginLimit,
				Window: cfg.RateLimit.LoginWindow,
			}, d.Metrics, d.Logger), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(d.JWT, blacklist, d.Users, d.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户模块：本人接口对所有登录用户开放，其余仅管理员
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.POST("/change-password", h.User.ChangePassword)

				admin := users.Group("", middleware.RoleAuth(model.RoleAdmin))
				admin.GET("", h.User.ListUsers)
				admin.POST("", h.User.CreateUser)
				admin.POST("/import", h.User.ImportUsers)
				admin.GET("/:id", h.User.GetUser)
				admin.GET("/:id/roles", h.User.GetUserRoles)
				admin.PUT("/:id", h.User.UpdateUser)
				admin.DELETE("/:id", h.User.DeleteUser)
				admin.POST("/:id/lockout", h.User.SetLockout)
				admin.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 部门模块
			departments := authorized.Group("/departments", middleware.RoleAuth(model.RoleAdmin))
			{
				departments.GET("", h.Department.ListDepartments)
				departments.GET("/:id", h.Department.GetDepartment)
				departments.POST("", h.Department.CreateDepartment)
				departments.PUT("/delete", h.Department.DeleteDepartments)
				departments.PUT("/disable", h.Department.DisableDepartments)
				departments.PUT("/enable", h.Department.EnableDepartments)
				departments.PUT("/:id", h.Department.UpdateDepartment)
			}
		}
	}

	return r
}

// healthHandler 数据库不可用时返回 503；Redis 为可选依赖，只报告状态
func healthHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{"status": "ok", "database": "ok"}

		if d.DB != nil {
			if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
				body["database"] = "unavailable"
			}
		}

		if d.Redis == nil {
			body["redis"] = "disabled"
		} else if err := d.Redis.Ping(ctx); err != nil {
			body["redis"] = "unavailable"
		} else {
			body["redis"] = "ok"
		}

		c.JSON(status, body)
	}
}
