package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
)

var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.ErrUnauthorized, "用户名或密码错误")
	ErrUserLockedOut      = pkgerrors.New(pkgerrors.ErrForbidden, "账号已被锁定")
)

// TokenBlacklist 登出时吊销 Token
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 吊销 jti 直到 expiresAt；未配置黑名单时为空操作
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type authService struct {
	identity  *identity.Manager
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService 创建 AuthService 实例
// blacklist 可为 nil
func NewAuthService(
	idm *identity.Manager,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuthService {
	return &authService{
		identity:  idm,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.identity.FindByName(ctx, req.UserName)
	if err != nil {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 校验密码，用户不存在与密码错误返回同一错误
	if user == nil || !s.identity.CheckPassword(user, req.Password) {
		s.observeLogin("failure")
		return nil, ErrInvalidCredentials
	}

	// 3. 锁定检查
	if s.identity.IsLockedOut(user) {
		s.observeLogin("locked")
		return nil, ErrUserLockedOut
	}

	// 4. 签发 Token
	roles, err := s.identity.GetRoles(ctx, user)
	if err != nil {
		s.logger.Error("查询用户角色失败", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	token, expiresAt, err := s.jwtMgr.GenerateAccessToken(user.ID, user.UserName, user.Email, roles)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.observeLogin("success")
	s.logger.Info("用户登录", zap.Int64("user_id", user.ID), zap.String("username", user.UserName))

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtMgr.AccessTTL().Seconds()),
		ExpiresAt:   expiresAt,
		User:        *toUserResponse(user, roles, s.identity.IsLockedOut(user)),
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.metrics != nil {
		s.metrics.Logouts.Inc()
	}
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, expiresAt.Sub(s.now())); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) observeLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(status).Inc()
	}
}
