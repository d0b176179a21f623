package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/api/handler"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/api/router"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/service"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/database"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	applogger "github.com/quochuy14775/SmartResourceBookingBE/pkg/logger"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/redis"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/tracing"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SRB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Environment),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 链路追踪（未配置 endpoint 时为空操作）
	shutdownTracing, err := tracing.Init(context.Background(), &cfg.Tracing, cfg.Server.Environment, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 4. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, applogger.GormLevel(cfg.Log.Level), logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单不可用，限流退化为进程内", zap.Error(err))
			rdb = nil
		}
	}

	// 6. 基础设施
	m := metrics.New(prometheus.DefaultRegisterer)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	interceptors := []repository.Interceptor{repository.NewAuditInterceptor()}
	if cfg.Audit.TrailEnabled {
		interceptors = append(interceptors, repository.NewAuditTrailInterceptor())
	}
	store := repository.NewStore(db, logger,
		repository.WithInterceptors(interceptors...),
		repository.WithMetrics(m),
	)
	idm := identity.NewManager(db, jwtMgr, identity.OptionsFromConfig(&cfg.Identity), logger)

	// 7. 依赖注入: Store → Service → Handler
	svc := service.NewService(service.Deps{
		Config:   cfg,
		Store:    store,
		Identity: idm,
		JWT:      jwtMgr,
		Redis:    rdb,
		Metrics:  m,
		Logger:   logger,
	})

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Seed.Seed(seedCtx); err != nil {
		cancelSeed()
		logger.Fatal("初始化种子数据失败", zap.Error(err))
	}
	cancelSeed()

	h := handler.NewHandler(svc, logger)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:     jwtMgr,
		Users:   idm,
		Redis:   rdb,
		DB:      db,
		Metrics: m,
		Logger:  logger,
	})

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(engine, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("链路追踪关闭异常", zap.Error(err))
	}

	_ = sqlDB.Close()

	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
