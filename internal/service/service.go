package service

import (
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/redis"
)

// Caller 本次请求的调用者，由 handler 从当前用户解析后显式传入
// ID 为 0 表示匿名
type Caller struct {
	ID       int64
	UserName string
	Roles    []string
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Department DepartmentService
	Seed       SeedService
}

// Deps 构造 Service 所需的基础设施
type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Identity *identity.Manager
	JWT      *jwt.Manager
	Redis    *redis.Client // 可为 nil，此时登出不写黑名单
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	var blacklist TokenBlacklist
	if d.Redis != nil {
		blacklist = d.Redis
	}
	return &Service{
		Auth:       NewAuthService(d.Identity, d.JWT, blacklist, d.Metrics, d.Logger),
		User:       NewUserService(d.Store, d.Identity, d.Metrics, d.Logger),
		Department: NewDepartmentService(d.Store, d.Logger),
		Seed:       NewSeedService(&d.Config.Admin, d.Identity, d.Logger),
	}
}
