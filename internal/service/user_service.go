package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/dto"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/identity"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/repository"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound          = pkgerrors.New(pkgerrors.ErrNotFound, "用户不存在")
	ErrDuplicateUserName     = pkgerrors.New(pkgerrors.ErrDuplicate, "用户名已存在")
	ErrDuplicateEmail        = pkgerrors.New(pkgerrors.ErrDuplicate, "邮箱已存在")
	ErrEmailInUse            = pkgerrors.New(pkgerrors.ErrDuplicate, "邮箱已被其他用户使用")
	ErrSelfDeletionForbidden = pkgerrors.New(pkgerrors.ErrForbidden, "不能删除自己的账号")
	ErrSelfLockoutForbidden  = pkgerrors.New(pkgerrors.ErrForbidden, "不能锁定自己的账号")
	ErrRoleAssignmentFailed  = pkgerrors.New(pkgerrors.ErrIdentityOperation, "角色分配失败")
	ErrUnauthorized          = pkgerrors.New(pkgerrors.ErrUnauthorized, "当前密码不正确")
	ErrNotAuthenticated      = pkgerrors.New(pkgerrors.ErrUnauthorized, "未登录")
)

// UserFields 用户列表可过滤、排序的属性
var UserFields = odata.Fields{
	"id":            "id",
	"username":      "user_name",
	"email":         "email",
	"full_name":     "full_name",
	"phone_number":  "phone_number",
	"department_id": "department_id",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"lockout_end":   "lockout_end",
}

// UserService 用户业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest, caller Caller) (*dto.UserResponse, error)
	Get(ctx context.Context, id int64) (*dto.UserResponse, error)
	// GetCurrent user 为认证中间件按请求解析并缓存的账号，nil 表示账号已不存在
	GetCurrent(ctx context.Context, user *model.User) (*dto.UserResponse, error)
	List(ctx context.Context, opts *odata.Options) (*int64, []dto.UserResponse, error)
	Roles(ctx context.Context, id int64) ([]string, error)
	// Update 部分更新，nil 字段保持不变；Roles 为 nil 不动角色，空切片清空，非空整体替换
	Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, caller Caller) (*dto.UserResponse, error)
	Delete(ctx context.Context, id int64, caller Caller) error
	// SetLockout lockout=true 永久锁定，false 解除；重复调用结果不变
	SetLockout(ctx context.Context, id int64, lockout bool, caller Caller) error
	ResetPassword(ctx context.Context, id int64, newPassword string, caller Caller) error
	ChangePassword(ctx context.Context, caller Caller, req *dto.ChangePasswordRequest) error

	// ParseImportFile 解析导入 Excel 文件
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	// Import 逐行创建用户，单行失败不影响其他行
	Import(ctx context.Context, rows []ImportUserRow, caller Caller) (*dto.ImportUserResponse, error)
}

type userService struct {
	store    *repository.Store
	identity *identity.Manager
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(store *repository.Store, idm *identity.Manager, m *metrics.Metrics, logger *zap.Logger) UserService {
	return &userService{store: store, identity: idm, metrics: m, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, caller Caller) (*dto.UserResponse, error) {
	// 用户名、邮箱唯一性（大小写不敏感）
	if existing, err := s.identity.FindByName(ctx, req.UserName); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateUserName
	}
	if existing, err := s.identity.FindByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateEmail
	}

	// 检查部门存在
	dept, err := s.findDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		UserName:     strings.TrimSpace(req.UserName),
		Email:        strings.TrimSpace(req.Email),
		FullName:     req.FullName,
		PhoneNumber:  emptyToNil(req.PhoneNumber),
		DepartmentID: req.DepartmentID,
	}
	if err := s.identity.Create(ctx, user, req.Password); err != nil {
		if !errors.Is(err, pkgerrors.ErrIdentityOperation) {
			s.logger.Error("创建用户失败", zap.Error(err))
		}
		return nil, err
	}

	// 角色分配失败时删除刚创建的账号
	if len(req.Roles) > 0 {
		if err := s.identity.AddToRoles(ctx, user, req.Roles); err != nil {
			if delErr := s.identity.Delete(ctx, user); delErr != nil {
				s.logger.Error("回滚新建用户失败", zap.Int64("user_id", user.ID), zap.Error(delErr))
			}
			return nil, roleAssignmentError(err)
		}
	}

	s.logger.Info("用户已创建",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
		zap.Int64("caller", caller.ID),
	)

	user.Department = dept
	roles, err := s.identity.GetRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user, roles, false), nil
}

// ────────────────────── Get / GetCurrent / List / Roles ──────────────────────

func (s *userService) Get(ctx context.Context, id int64) (*dto.UserResponse, error) {
	user, err := repository.For[model.User](s.store.NewSession(ctx, 0)).
		Query().
		Preload("Department").
		Where("id = ?", id).
		First()
	if err != nil {
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	roles, err := s.identity.GetRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user, roles, s.identity.IsLockedOut(user)), nil
}

func (s *userService) GetCurrent(ctx context.Context, user *model.User) (*dto.UserResponse, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	// 缓存的账号只读，部门补到副本上
	u := *user
	if u.Department == nil && u.DepartmentID != nil {
		dept, err := repository.For[model.Department](s.store.NewSession(ctx, 0)).
			Query().
			IncludeDeleted().
			Where("id = ?", *u.DepartmentID).
			First()
		if err != nil {
			s.logger.Error("查询用户部门失败", zap.Int64("user_id", u.ID), zap.Error(err))
			return nil, err
		}
		u.Department = dept
	}

	roles, err := s.identity.GetRoles(ctx, &u)
	if err != nil {
		return nil, err
	}
	return toUserResponse(&u, roles, s.identity.IsLockedOut(&u)), nil
}

func (s *userService) List(ctx context.Context, opts *odata.Options) (*int64, []dto.UserResponse, error) {
	q := repository.For[model.User](s.store.NewSession(ctx, 0)).Query().Apply(opts)
	if opts == nil || len(opts.OrderBy) == 0 {
		q = q.Order("id ASC")
	}

	var count *int64
	if opts != nil && opts.Count {
		n, err := q.Count()
		if err != nil {
			s.logger.Error("统计用户失败", zap.Error(err))
			return nil, nil, err
		}
		count = &n
	}

	users, err := q.Preload("Department").List()
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, nil, err
	}

	// 批量查询角色，避免 N+1
	ids := make([]int64, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	roleMap, err := s.identity.RolesForUsers(ctx, ids)
	if err != nil {
		s.logger.Error("批量查询角色失败", zap.Error(err))
		return nil, nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		u := &users[i]
		result = append(result, *toUserResponse(u, roleMap[u.ID], s.identity.IsLockedOut(u)))
	}
	return count, result, nil
}

func (s *userService) Roles(ctx context.Context, id int64) ([]string, error) {
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.identity.GetRoles(ctx, user)
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, caller Caller) (*dto.UserResponse, error) {
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	// 仅大小写变化时无需查重，但仍按原样保存
	if req.Email != nil && strings.TrimSpace(*req.Email) != user.Email {
		if identity.Normalize(*req.Email) != user.NormalizedEmail {
			owner, err := s.identity.FindByEmail(ctx, *req.Email)
			if err != nil {
				return nil, err
			}
			if owner != nil && owner.ID != user.ID {
				return nil, ErrEmailInUse
			}
		}
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = emptyToNil(req.PhoneNumber)
	}
	if req.DepartmentID != nil {
		if _, err := s.findDepartment(ctx, req.DepartmentID); err != nil {
			return nil, err
		}
		user.DepartmentID = req.DepartmentID
	}

	if err := s.identity.Update(ctx, user); err != nil {
		if !errors.Is(err, pkgerrors.ErrIdentityOperation) {
			s.logger.Error("更新用户失败", zap.Int64("user_id", id), zap.Error(err))
		}
		return nil, err
	}

	if req.Roles != nil {
		if err := s.replaceRoles(ctx, user, req.Roles); err != nil {
			return nil, err
		}
	}

	s.logger.Info("用户已更新", zap.Int64("user_id", id), zap.Int64("caller", caller.ID))
	return s.Get(ctx, id)
}

// replaceRoles 先移除全部现有角色，再加入 roles
func (s *userService) replaceRoles(ctx context.Context, user *model.User, roles []string) error {
	current, err := s.identity.GetRoles(ctx, user)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		if err := s.identity.RemoveFromRoles(ctx, user, current); err != nil {
			return roleAssignmentError(err)
		}
	}
	if len(roles) > 0 {
		if err := s.identity.AddToRoles(ctx, user, roles); err != nil {
			return roleAssignmentError(err)
		}
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id int64, caller Caller) error {
	if id == caller.ID {
		return ErrSelfDeletionForbidden
	}
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}
	if err := s.identity.Delete(ctx, user); err != nil {
		return err
	}
	s.logger.Info("用户已删除", zap.Int64("user_id", id), zap.Int64("caller", caller.ID))
	return nil
}

// ────────────────────── Lockout ──────────────────────

func (s *userService) SetLockout(ctx context.Context, id int64, lockout bool, caller Caller) error {
	if id == caller.ID {
		return ErrSelfLockoutForbidden
	}
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}

	if lockout {
		forever := model.LockoutForever
		err = s.identity.SetLockoutEnd(ctx, user, &forever)
	} else {
		err = s.identity.SetLockoutEnd(ctx, user, nil)
	}
	if err != nil {
		return err
	}
	s.logger.Info("用户锁定状态已变更",
		zap.Int64("user_id", id),
		zap.Bool("lockout", lockout),
		zap.Int64("caller", caller.ID),
	)
	return nil
}

// ────────────────────── Password ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, id int64, newPassword string, caller Caller) error {
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}
	token, err := s.identity.GeneratePasswordResetToken(ctx, user)
	if err != nil {
		s.logger.Error("生成重置令牌失败", zap.Int64("user_id", id), zap.Error(err))
		return err
	}
	if err := s.identity.ResetPassword(ctx, user, token, newPassword); err != nil {
		return err
	}
	s.logger.Info("管理员重置密码", zap.Int64("user_id", id), zap.Int64("caller", caller.ID))
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, caller Caller, req *dto.ChangePasswordRequest) error {
	if caller.ID == 0 {
		return ErrNotAuthenticated
	}
	user, err := s.mustFind(ctx, caller.ID)
	if err != nil {
		return err
	}
	if err := s.identity.ChangePassword(ctx, user, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrPasswordMismatch) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *userService) mustFind(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.identity.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// findDepartment id 为 nil 时返回 nil, nil；部门不存在或已删除返回 ErrDepartmentNotFound
func (s *userService) findDepartment(ctx context.Context, id *int64) (*model.Department, error) {
	if id == nil {
		return nil, nil
	}
	dept, err := repository.For[model.Department](s.store.NewSession(ctx, 0)).Find(*id)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, ErrDepartmentNotFound
	}
	return dept, nil
}

// roleAssignmentError 账号子系统的拒绝归为 ErrRoleAssignmentFailed，保留描述
func roleAssignmentError(err error) error {
	if errors.Is(err, pkgerrors.ErrIdentityOperation) {
		return fmt.Errorf("%w: %w", ErrRoleAssignmentFailed, err)
	}
	return err
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// toUserResponse 将 model.User 转换为 dto.UserResponse
func toUserResponse(u *model.User, roles []string, lockedOut bool) *dto.UserResponse {
	if roles == nil {
		roles = []string{}
	}
	var dept *dto.DepartmentResponse
	if u.Department != nil {
		dept = &dto.DepartmentResponse{ID: u.Department.ID, Name: u.Department.Name}
	}
	return &dto.UserResponse{
		ID:             u.ID,
		UserName:       u.UserName,
		Email:          u.Email,
		FullName:       u.FullName,
		PhoneNumber:    u.PhoneNumber,
		Department:     dept,
		Roles:          roles,
		EmailConfirmed: u.EmailConfirmed,
		IsLockedOut:    lockedOut,
		LockoutEnd:     u.LockoutEnd,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
