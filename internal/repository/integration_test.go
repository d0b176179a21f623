//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/database"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=smart_resource_booking_test sslmode=disable TimeZone=UTC"
	}

	var err error
	pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 与生产一致：使用内嵌迁移建表
	sqlDB, err := pgDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func pgStore() *repository.Store {
	return repository.NewStore(pgDB, zap.NewNop(),
		repository.WithInterceptors(repository.NewAuditInterceptor(), repository.NewAuditTrailInterceptor()),
	)
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// ═══════════════════════════════════════════════════════════
// Tests
// ═══════════════════════════════════════════════════════════

func TestPG_SoftDeleteAndTrail(t *testing.T) {
	store := pgStore()
	ctx := context.Background()

	repo := repository.For[model.Department](store.NewSession(ctx, actor))
	d := model.NewDepartment(uniqueName("pg-dept"), "")
	repo.Add(d)
	_, err := repo.SaveChanges()
	require.NoError(t, err)
	t.Cleanup(func() {
		pgDB.Where("entity_name = ? AND entity_id = ?", "Department", d.ID).Delete(&model.AuditTrail{})
		pgDB.Where("id = ?", d.ID).Delete(&model.Department{})
	})

	repo = repository.For[model.Department](store.NewSession(ctx, actor))
	loaded, err := repo.Find(d.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	repo.Remove(loaded)
	_, err = repo.SaveChanges()
	require.NoError(t, err)

	got, err := repository.For[model.Department](store.NewSession(ctx, 0)).Find(d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var raw model.Department
	require.NoError(t, pgDB.Where("id = ?", d.ID).Take(&raw).Error)
	assert.True(t, raw.IsDeleted)
	assert.NotNil(t, raw.UpdatedAt)
	assert.Equal(t, 2, raw.Version)

	var trails int64
	require.NoError(t, pgDB.Model(&model.AuditTrail{}).
		Where("entity_name = ? AND entity_id = ?", "Department", d.ID).Count(&trails).Error)
	assert.Equal(t, int64(2), trails, "新增与删除各一条")
}

func TestPG_OptimisticLock(t *testing.T) {
	store := pgStore()
	ctx := context.Background()

	repo := repository.For[model.Department](store.NewSession(ctx, actor))
	d := model.NewDepartment(uniqueName("pg-lock"), "")
	repo.Add(d)
	_, err := repo.SaveChanges()
	require.NoError(t, err)
	t.Cleanup(func() {
		pgDB.Where("entity_name = ? AND entity_id = ?", "Department", d.ID).Delete(&model.AuditTrail{})
		pgDB.Where("id = ?", d.ID).Delete(&model.Department{})
	})

	repoA := repository.For[model.Department](store.NewSession(ctx, 1))
	repoB := repository.For[model.Department](store.NewSession(ctx, 2))
	a, err := repoA.Find(d.ID)
	require.NoError(t, err)
	b, err := repoB.Find(d.ID)
	require.NoError(t, err)

	a.Description = "A"
	repoA.Update(a)
	_, err = repoA.SaveChanges()
	require.NoError(t, err)

	b.Description = "B"
	repoB.Update(b)
	_, err = repoB.SaveChanges()
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)
}

func TestPG_ForeignKeyIsConstraintViolation(t *testing.T) {
	store := pgStore()
	ctx := context.Background()

	repo := repository.For[model.Resource](store.NewSession(ctx, actor))
	repo.Add(&model.Resource{
		BaseEntity:   model.NewBaseEntity(),
		Name:         uniqueName("projector"),
		CategoryID:   999999999,
		DepartmentID: 999999999,
		IsAvailable:  true,
	})
	_, err := repo.SaveChanges()
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrConstraintViolation)
}
