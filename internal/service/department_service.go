package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
)

// ── 部门模块业务错误 ──

var (
	ErrDepartmentNotFound   = pkgerrors.New(pkgerrors.ErrNotFound, "部门不存在")
	ErrDepartmentNameExists = pkgerrors.New(pkgerrors.ErrDuplicate, "部门名称已存在")
)

// DepartmentFields 部门列表可过滤、排序的属性
var DepartmentFields = odata.Fields{
	"id":          "id",
	"name":        "name",
	"description": "description",
	"is_active":   "is_active",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

// DepartmentService 部门业务接口
type DepartmentService interface {
	// List 返回未删除部门；opts.Count 为 true 时同时返回不分页的总数
	List(ctx context.Context, opts *odata.Options) (*int64, []dto.DepartmentDetailResponse, error)
	Get(ctx context.Context, id int64) (*dto.DepartmentDetailResponse, error)
	Create(ctx context.Context, req *dto.CreateDepartmentRequest, caller Caller) (*dto.DepartmentDetailResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateDepartmentRequest, caller Caller) (*dto.DepartmentDetailResponse, error)
	// Delete / Disable / Enable 只作用于尚未处于目标状态的部门，返回实际变更的 ID
	Delete(ctx context.Context, ids []int64, caller Caller) ([]int64, error)
	Disable(ctx context.Context, ids []int64, caller Caller) ([]int64, error)
	Enable(ctx context.Context, ids []int64, caller Caller) ([]int64, error)
}

type departmentService struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewDepartmentService 创建 DepartmentService 实例
func NewDepartmentService(store *repository.Store, logger *zap.Logger) DepartmentService {
	return &departmentService{store: store, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *departmentService) List(ctx context.Context, opts *odata.Options) (*int64, []dto.DepartmentDetailResponse, error) {
	repo := repository.For[model.Department](s.store.NewSession(ctx, 0))

	q := repo.Query().Apply(opts)
	if opts == nil || len(opts.OrderBy) == 0 {
		q = q.Order("id ASC")
	}

	var count *int64
	if opts != nil && opts.Count {
		n, err := q.Count()
		if err != nil {
			s.logger.Error("统计部门失败", zap.Error(err))
			return nil, nil, err
		}
		count = &n
	}

	depts, err := q.List()
	if err != nil {
		s.logger.Error("列出部门失败", zap.Error(err))
		return nil, nil, err
	}

	result := make([]dto.DepartmentDetailResponse, 0, len(depts))
	for i := range depts {
		result = append(result, *toDepartmentDetailResponse(&depts[i]))
	}
	return count, result, nil
}

// ────────────────────── Get ──────────────────────

func (s *departmentService) Get(ctx context.Context, id int64) (*dto.DepartmentDetailResponse, error) {
	dept, err := repository.For[model.Department](s.store.NewSession(ctx, 0)).Find(id)
	if err != nil {
		s.logger.Error("查询部门失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}
	return toDepartmentDetailResponse(dept), nil
}

// ────────────────────── Create ──────────────────────

func (s *departmentService) Create(ctx context.Context, req *dto.CreateDepartmentRequest, caller Caller) (*dto.DepartmentDetailResponse, error) {
	repo := repository.For[model.Department](s.store.NewSession(ctx, caller.ID))

	// 名称在未删除部门中唯一
	if err := s.checkNameFree(repo, req.Name, 0); err != nil {
		return nil, err
	}

	dept := model.NewDepartment(req.Name, req.Description)
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}
	repo.Add(dept)
	if _, err := repo.SaveChanges(); err != nil {
		s.logger.Error("创建部门失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("部门已创建", zap.Int64("id", dept.ID), zap.Int64("caller", caller.ID))
	return toDepartmentDetailResponse(dept), nil
}

// ────────────────────── Update ──────────────────────

func (s *departmentService) Update(ctx context.Context, id int64, req *dto.UpdateDepartmentRequest, caller Caller) (*dto.DepartmentDetailResponse, error) {
	repo := repository.For[model.Department](s.store.NewSession(ctx, caller.ID))

	dept, err := repo.Find(id)
	if err != nil {
		s.logger.Error("查询部门失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}

	if req.Name != nil && *req.Name != dept.Name {
		if err := s.checkNameFree(repo, *req.Name, dept.ID); err != nil {
			return nil, err
		}
		dept.Name = *req.Name
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	repo.Update(dept)
	if _, err := repo.SaveChanges(); err != nil {
		s.logger.Error("更新部门失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toDepartmentDetailResponse(dept), nil
}

// ────────────────────── Delete / Disable / Enable ──────────────────────

func (s *departmentService) Delete(ctx context.Context, ids []int64, caller Caller) ([]int64, error) {
	// 查询默认排除已删除行，Remove 在提交时转为软删除
	return s.bulk(ctx, ids, caller, "删除部门", nil, func(repo repository.Repository[model.Department], d *model.Department) {
		repo.Remove(d)
	})
}

func (s *departmentService) Disable(ctx context.Context, ids []int64, caller Caller) ([]int64, error) {
	return s.bulk(ctx, ids, caller, "停用部门",
		func(q *repository.Query[model.Department]) *repository.Query[model.Department] {
			return q.Where("is_active = ?", true)
		},
		func(repo repository.Repository[model.Department], d *model.Department) {
			d.IsActive = false
			repo.Update(d)
		})
}

func (s *departmentService) Enable(ctx context.Context, ids []int64, caller Caller) ([]int64, error) {
	return s.bulk(ctx, ids, caller, "启用部门",
		func(q *repository.Query[model.Department]) *repository.Query[model.Department] {
			return q.Where("is_active = ?", false)
		},
		func(repo repository.Repository[model.Department], d *model.Department) {
			d.IsActive = true
			repo.Update(d)
		})
}

// bulk 加载 ids 中满足 filter 的部门，逐个执行 apply 后一次性提交
// 没有任何部门匹配时返回 ErrDepartmentNotFound
func (s *departmentService) bulk(
	ctx context.Context,
	ids []int64,
	caller Caller,
	op string,
	filter func(*repository.Query[model.Department]) *repository.Query[model.Department],
	apply func(repository.Repository[model.Department], *model.Department),
) ([]int64, error) {
	if len(ids) == 0 {
		return nil, ErrDepartmentNotFound
	}
	repo := repository.For[model.Department](s.store.NewSession(ctx, caller.ID))

	q := repo.Query().WhereIn("id", ids).Order("id ASC")
	if filter != nil {
		q = filter(q)
	}
	depts, err := q.List()
	if err != nil {
		s.logger.Error(op+"失败", zap.Error(err))
		return nil, err
	}
	if len(depts) == 0 {
		return nil, ErrDepartmentNotFound
	}

	affected := make([]int64, 0, len(depts))
	for i := range depts {
		apply(repo, &depts[i])
		affected = append(affected, depts[i].ID)
	}
	if _, err := repo.SaveChanges(); err != nil {
		s.logger.Error(op+"失败", zap.Int64s("ids", affected), zap.Error(err))
		return nil, err
	}

	s.logger.Info(op, zap.Int64s("ids", affected), zap.Int64("caller", caller.ID))
	return affected, nil
}

// ── 内部辅助方法 ──

func (s *departmentService) checkNameFree(repo repository.Repository[model.Department], name string, selfID int64) error {
	q := repo.Query().Where("name = ?", name)
	if selfID > 0 {
		q = q.Where("id <> ?", selfID)
	}
	exists, err := q.Exists()
	if err != nil {
		s.logger.Error("查询部门失败", zap.Error(err))
		return err
	}
	if exists {
		return ErrDepartmentNameExists
	}
	return nil
}

func toDepartmentDetailResponse(d *model.Department) *dto.DepartmentDetailResponse {
	return &dto.DepartmentDetailResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
