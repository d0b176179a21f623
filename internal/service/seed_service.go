package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
)

// ErrAdminPasswordMissing 需要创建管理员但未配置密码
var ErrAdminPasswordMissing = errors.New("未配置 admin.password，无法创建初始管理员")

// SeedService 启动时写入基础数据，重复执行结果不变
type SeedService interface {
	Seed(ctx context.Context) error
}

type seedService struct {
	admin    *config.AdminConfig
	identity *identity.Manager
	logger   *zap.Logger
}

// NewSeedService 创建 SeedService 实例
func NewSeedService(admin *config.AdminConfig, idm *identity.Manager, logger *zap.Logger) SeedService {
	return &seedService{admin: admin, identity: idm, logger: logger}
}

func (s *seedService) Seed(ctx context.Context) error {
	// 1. 内置角色
	for _, name := range []string{model.RoleAdmin, model.RoleManager, model.RoleUser} {
		created, err := s.identity.EnsureRole(ctx, name)
		if err != nil {
			return fmt.Errorf("创建角色 %s 失败: %w", name, err)
		}
		if created {
			s.logger.Info("已创建角色", zap.String("role", name))
		}
	}

	// 2. 初始管理员
	admin, err := s.identity.FindByName(ctx, s.admin.UserName)
	if err != nil {
		return err
	}
	if admin == nil {
		if s.admin.Password == "" {
			return ErrAdminPasswordMissing
		}
		admin = &model.User{
			UserName:       s.admin.UserName,
			Email:          s.admin.Email,
			FullName:       "Administrator",
			EmailConfirmed: true,
		}
		if err := s.identity.Create(ctx, admin, s.admin.Password); err != nil {
			return fmt.Errorf("创建初始管理员失败: %w", err)
		}
		s.logger.Info("已创建初始管理员", zap.String("username", admin.UserName))
	}

	// 3. 管理员角色
	isAdmin, err := s.identity.IsInRole(ctx, admin, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		if err := s.identity.AddToRoles(ctx, admin, []string{model.RoleAdmin}); err != nil {
			return fmt.Errorf("分配管理员角色失败: %w", err)
		}
	}
	return nil
}
