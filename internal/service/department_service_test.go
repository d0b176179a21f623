package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
)

// ── 完整流程 ──

func TestDepartmentService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.depts.Create(ctx, &dto.CreateDepartmentRequest{Name: "Engineering", Description: "研发"}, f.admin)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Nil(t, created.UpdatedAt)
	assert.Equal(t, 1, created.Version)

	got, err := f.depts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", got.Name)
	assert.Equal(t, "研发", got.Description)

	affected, err := f.depts.Delete(ctx, []int64{created.ID}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, affected)

	_, err = f.depts.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	_, err = f.depts.Disable(ctx, []int64{created.ID}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	_, err = f.depts.Delete(ctx, []int64{created.ID}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNotFound, "已删除的部门不能再次删除")
}

func TestDepartmentService_CreateInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	created, err := f.depts.Create(ctx, &dto.CreateDepartmentRequest{Name: "Archive", IsActive: &inactive}, f.admin)
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	got, err := f.depts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// 已停用的部门可直接启用
	affected, err := f.depts.Enable(ctx, []int64{created.ID}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, affected)
}

func TestDepartmentService_SoftDeleteKeepsRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDepartment(t, "Finance")

	_, err := f.depts.Delete(ctx, []int64{d.ID}, f.admin)
	require.NoError(t, err)

	var raw model.Department
	require.NoError(t, f.db.Where("id = ?", d.ID).Take(&raw).Error)
	assert.True(t, raw.IsDeleted)
	assert.True(t, raw.IsActive, "删除与停用互不影响")
	require.NotNil(t, raw.UpdatedAt)
	require.NotNil(t, raw.UpdatedBy)
	assert.Equal(t, f.admin.ID, *raw.UpdatedBy)

	_, list, err := f.depts.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ── 批量启停 ──

func TestDepartmentService_DisableEnable_OnlyTouchesChangedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createDepartment(t, "A")
	b := f.createDepartment(t, "B")

	affected, err := f.depts.Disable(ctx, []int64{a.ID}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, affected)

	affected, err = f.depts.Disable(ctx, []int64{a.ID, b.ID}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, affected, "已停用的部门不计入结果")

	_, err = f.depts.Disable(ctx, []int64{a.ID, b.ID}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	affected, err = f.depts.Enable(ctx, []int64{a.ID, 9999}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, affected)

	_, err = f.depts.Enable(ctx, []int64{a.ID}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	got, err := f.depts.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.UpdatedAt)
	assert.Equal(t, 2, got.Version)
}

func TestDepartmentService_DeleteDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDepartment(t, "Legal")

	_, err := f.depts.Disable(ctx, []int64{d.ID}, f.admin)
	require.NoError(t, err)

	affected, err := f.depts.Delete(ctx, []int64{d.ID}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{d.ID}, affected)
}

func TestDepartmentService_BulkEmptyIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.depts.Enable(context.Background(), nil, f.admin)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

// ── Create / Update ──

func TestDepartmentService_NameUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDepartment(t, "Sales")

	_, err := f.depts.Create(ctx, &dto.CreateDepartmentRequest{Name: "Sales"}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNameExists)
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicate)

	// 删除后名称可复用
	_, err = f.depts.Delete(ctx, []int64{d.ID}, f.admin)
	require.NoError(t, err)
	f.createDepartment(t, "Sales")
}

func TestDepartmentService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDepartment(t, "Ops")
	f.createDepartment(t, "Support")

	updated, err := f.depts.Update(ctx, d.ID, &dto.UpdateDepartmentRequest{
		Description: strPtr("运维"),
		IsActive:    boolPtr(false),
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "Ops", updated.Name)
	assert.Equal(t, "运维", updated.Description)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 2, updated.Version)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, d.CreatedAt.Unix(), updated.CreatedAt.Unix())

	_, err = f.depts.Update(ctx, d.ID, &dto.UpdateDepartmentRequest{Name: strPtr("Support")}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNameExists)

	_, err = f.depts.Update(ctx, 9999, &dto.UpdateDepartmentRequest{Name: strPtr("X")}, f.admin)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

// ── List ──

func TestDepartmentService_List_ODataOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		f.createDepartment(t, name)
	}
	delta := f.createDepartment(t, "Delta")
	_, err := f.depts.Disable(ctx, []int64{delta.ID}, f.admin)
	require.NoError(t, err)

	opts, err := odata.Parse(url.Values{
		"$filter":  {"is_active eq true"},
		"$orderby": {"name desc"},
		"$top":     {"2"},
		"$count":   {"true"},
	}, DepartmentFields)
	require.NoError(t, err)

	count, list, err := f.depts.List(ctx, opts)
	require.NoError(t, err)
	require.NotNil(t, count)
	assert.Equal(t, int64(3), *count, "计数不受分页影响")
	require.Len(t, list, 2)
	assert.Equal(t, "Gamma", list[0].Name)
	assert.Equal(t, "Beta", list[1].Name)

	count, list, err = f.depts.List(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, count)
	assert.Len(t, list, 4)
}
