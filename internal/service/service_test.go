package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	dbtest "github.com/quochuy14775/SmartResourceBookingBE/internal/testutil"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
)

// ── 测试辅助 ──

const testPassword = "Passw0rd"

type fixture struct {
	db       *gorm.DB
	store    *repository.Store
	identity *identity.Manager
	jwt      *jwt.Manager
	metrics  *metrics.Metrics
	users    UserService
	depts    DepartmentService
	auth     AuthService
	admin    Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.NewDB(t)
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	store := repository.NewStore(db, logger,
		repository.WithInterceptors(repository.NewAuditInterceptor()),
		repository.WithMetrics(m),
	)
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "test",
		AccessTokenTTL: time.Hour,
	})
	idm := identity.NewManager(db, jwtMgr, identity.Options{
		Policy: identity.PasswordPolicy{
			MinLength:        6,
			RequireDigit:     true,
			RequireUppercase: true,
			RequireLowercase: true,
		},
		ResetTokenTTL: time.Minute,
		BcryptCost:    bcrypt.MinCost,
	}, logger)

	adminCfg := &config.AdminConfig{UserName: "admin", Email: "admin@localhost.local", Password: "Admin123"}
	require.NoError(t, NewSeedService(adminCfg, idm, logger).Seed(context.Background()))
	admin, err := idm.FindByName(context.Background(), "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)

	return &fixture{
		db:       db,
		store:    store,
		identity: idm,
		jwt:      jwtMgr,
		metrics:  m,
		users:    NewUserService(store, idm, m, logger),
		depts:    NewDepartmentService(store, logger),
		auth:     NewAuthService(idm, jwtMgr, nil, m, logger),
		admin:    Caller{ID: admin.ID, UserName: admin.UserName, Roles: []string{model.RoleAdmin}},
	}
}

func (f *fixture) createDepartment(t *testing.T, name string) *dto.DepartmentDetailResponse {
	t.Helper()
	d, err := f.depts.Create(context.Background(), &dto.CreateDepartmentRequest{Name: name}, f.admin)
	require.NoError(t, err)
	return d
}

func (f *fixture) createUser(t *testing.T, name string, roles ...string) *dto.UserResponse {
	t.Helper()
	u, err := f.users.Create(context.Background(), &dto.CreateUserRequest{
		UserName: name,
		Email:    name + "@example.com",
		FullName: name,
		Password: testPassword,
		Roles:    roles,
	}, f.admin)
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
