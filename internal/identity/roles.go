package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
)

// EnsureRole 角色不存在时创建，返回是否新建
func (m *Manager) EnsureRole(ctx context.Context, name string) (bool, error) {
	role, err := m.findRole(ctx, m.db.WithContext(ctx), name)
	if err != nil {
		return false, err
	}
	if role != nil {
		return false, nil
	}
	role = &model.Role{Name: strings.TrimSpace(name), NormalizedName: Normalize(name)}
	if err := m.db.WithContext(ctx).Create(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("创建角色失败: %w", err)
	}
	return true, nil
}

// RoleExists 角色是否存在
func (m *Manager) RoleExists(ctx context.Context, name string) (bool, error) {
	role, err := m.findRole(ctx, m.db.WithContext(ctx), name)
	return role != nil, err
}

func (m *Manager) findRole(_ context.Context, db *gorm.DB, name string) (*model.Role, error) {
	var role model.Role
	err := db.Where("normalized_name = ?", Normalize(name)).Take(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// GetRoles 账号的角色名，按名称排序
func (m *Manager) GetRoles(ctx context.Context, u *model.User) ([]string, error) {
	byUser, err := m.RolesForUsers(ctx, []int64{u.ID})
	if err != nil {
		return nil, err
	}
	roles := byUser[u.ID]
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

// RolesForUsers 批量查询多个账号的角色，避免列表接口 N+1 查询
func (m *Manager) RolesForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID int64
		Name   string
	}
	err := m.db.WithContext(ctx).
		Table("user_roles").
		Select("user_roles.user_id AS user_id, roles.name AS name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", userIDs).
		Order("roles.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}

	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.Name)
	}
	return out, nil
}

// IsInRole 账号是否属于角色
func (m *Manager) IsInRole(ctx context.Context, u *model.User, role string) (bool, error) {
	roles, err := m.GetRoles(ctx, u)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true, nil
		}
	}
	return false, nil
}

// AddToRoles 将账号加入多个角色；任一角色不存在或已加入时整体拒绝
func (m *Manager) AddToRoles(ctx context.Context, u *model.User, roles []string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var descs []string
		var links []model.UserRole
		seen := make(map[int64]bool)

		for _, name := range roles {
			role, err := m.findRole(ctx, tx, name)
			if err != nil {
				return err
			}
			if role == nil {
				descs = append(descs, fmt.Sprintf("角色 '%s' 不存在", name))
				continue
			}
			if seen[role.ID] {
				continue
			}
			seen[role.ID] = true

			var n int64
			if err := tx.Model(&model.UserRole{}).
				Where("user_id = ? AND role_id = ?", u.ID, role.ID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				descs = append(descs, fmt.Sprintf("账号已属于角色 '%s'", role.Name))
				continue
			}
			links = append(links, model.UserRole{UserID: u.ID, RoleID: role.ID})
		}

		if len(descs) > 0 {
			return rejected(descs...)
		}
		if len(links) == 0 {
			return nil
		}
		return tx.Create(&links).Error
	})
}

// RemoveFromRoles 将账号移出多个角色；未加入的角色整体拒绝
func (m *Manager) RemoveFromRoles(ctx context.Context, u *model.User, roles []string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var descs []string
		var roleIDs []int64
		seen := make(map[int64]bool)

		for _, name := range roles {
			role, err := m.findRole(ctx, tx, name)
			if err != nil {
				return err
			}
			if role == nil {
				descs = append(descs, fmt.Sprintf("角色 '%s' 不存在", name))
				continue
			}
			if !seen[role.ID] {
				seen[role.ID] = true
				roleIDs = append(roleIDs, role.ID)
			}
		}
		if len(descs) > 0 {
			return rejected(descs...)
		}
		if len(roleIDs) == 0 {
			return nil
		}

		res := tx.Where("user_id = ? AND role_id IN ?", u.ID, roleIDs).Delete(&model.UserRole{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(roleIDs)) {
			return rejected("账号不属于指定的全部角色")
		}
		return nil
	})
}
