package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

type fakeBlacklist struct {
	jti string
	ttl time.Duration
	err error
}

func (b *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.jti, b.ttl = jti, ttl
	return b.err
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "alice", model.RoleUser, model.RoleManager)

	resp, err := f.auth.Login(ctx, &dto.LoginRequest{UserName: "ALICE", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Equal(t, []string{model.RoleManager, model.RoleUser}, resp.User.Roles)

	claims, err := f.jwt.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.ElementsMatch(t, []string{model.RoleUser, model.RoleManager}, claims.Roles)
	assert.NotEmpty(t, claims.ID)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("success")))
}

func TestAuthService_Login_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "bob")

	_, err := f.auth.Login(ctx, &dto.LoginRequest{UserName: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)

	_, err = f.auth.Login(ctx, &dto.LoginRequest{UserName: "nobody", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "未知用户与密码错误返回同一错误")

	require.NoError(t, f.users.SetLockout(ctx, u.ID, true, f.admin))
	_, err = f.auth.Login(ctx, &dto.LoginRequest{UserName: "bob", Password: testPassword})
	assert.ErrorIs(t, err, ErrUserLockedOut)

	// 锁定账号使用错误密码时不暴露锁定状态
	_, err = f.auth.Login(ctx, &dto.LoginRequest{UserName: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("locked")))
}

// ── Logout ──

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bl := &fakeBlacklist{}
	svc := NewAuthService(f.identity, f.jwt, bl, f.metrics, zap.NewNop())

	require.NoError(t, svc.Logout(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.Equal(t, "jti-1", bl.jti)
	assert.Greater(t, bl.ttl, 50*time.Minute)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Logouts))

	bl.err = errors.New("redis down")
	assert.Error(t, svc.Logout(ctx, "jti-2", time.Now().Add(time.Hour)))

	// 未配置黑名单时为空操作
	require.NoError(t, f.auth.Logout(ctx, "jti-3", time.Now().Add(time.Hour)))
}

// ── Seed ──

func TestSeedService_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg := &config.AdminConfig{UserName: "admin", Email: "admin@localhost.local", Password: "Admin123"}
	require.NoError(t, NewSeedService(cfg, f.identity, zap.NewNop()).Seed(ctx))

	admin, err := f.identity.FindByName(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, f.admin.ID, admin.ID)

	roles, err := f.identity.GetRoles(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleAdmin}, roles)

	var n int64
	require.NoError(t, f.db.Model(&model.Role{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)

	err = NewSeedService(&config.AdminConfig{UserName: "root", Email: "root@example.com"}, f.identity, zap.NewNop()).Seed(ctx)
	assert.ErrorIs(t, err, ErrAdminPasswordMissing)
}
