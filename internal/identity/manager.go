// Package identity 管理账号、密码与角色。
// 账号变更被拒绝时返回 *pkgerrors.IdentityError（携带全部错误描述），基础设施故障返回普通 error。
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
)

// ErrPasswordMismatch 修改密码时当前密码校验失败
var ErrPasswordMismatch = pkgerrors.New(pkgerrors.ErrUnauthorized, "当前密码不正确")

// Options 账号子系统选项
type Options struct {
	Policy        PasswordPolicy
	ResetTokenTTL time.Duration
	BcryptCost    int
}

// OptionsFromConfig 从配置构造选项
func OptionsFromConfig(cfg *config.IdentityConfig) Options {
	return Options{
		Policy: PasswordPolicy{
			MinLength:        cfg.PasswordMinLength,
			RequireDigit:     cfg.PasswordRequireDigit,
			RequireUppercase: cfg.PasswordRequireUppercase,
			RequireLowercase: cfg.PasswordRequireLowercase,
			RequireSymbol:    cfg.PasswordRequireSymbol,
		},
		ResetTokenTTL: cfg.ResetTokenTTL,
		BcryptCost:    cfg.BcryptCost,
	}
}

// Manager 账号管理器
type Manager struct {
	db     *gorm.DB
	tokens *jwt.Manager
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewManager 创建账号管理器
func NewManager(db *gorm.DB, tokens *jwt.Manager, opts Options, logger *zap.Logger) *Manager {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 15 * time.Minute
	}
	return &Manager{
		db:     db,
		tokens: tokens,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Normalize 用户名、邮箱、角色名的比较形式
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func rejected(descriptions ...string) error {
	return &pkgerrors.IdentityError{Descriptions: descriptions}
}

// ── 查询 ──

// FindByID 按 ID 查找，不存在返回 nil, nil
func (m *Manager) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, nil
	}
	return m.findOne(ctx, "id = ?", id)
}

// FindByName 按用户名（大小写不敏感）查找
func (m *Manager) FindByName(ctx context.Context, userName string) (*model.User, error) {
	return m.findOne(ctx, "normalized_user_name = ?", Normalize(userName))
}

// FindByEmail 按邮箱（大小写不敏感）查找
func (m *Manager) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findOne(ctx, "normalized_email = ?", Normalize(email))
}

func (m *Manager) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User
	err := m.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ── 账号生命周期 ──

// Create 校验并创建账号，password 经 bcrypt 哈希后保存
func (m *Manager) Create(ctx context.Context, u *model.User, password string) error {
	descs, err := m.validateUser(ctx, u)
	if err != nil {
		return err
	}
	descs = append(descs, m.opts.Policy.Validate(password)...)
	if len(descs) > 0 {
		return rejected(descs...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("密码哈希失败: %w", err)
	}

	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)
	u.PasswordHash = string(hash)
	u.SecurityStamp = uuid.NewString()
	u.LockoutEnabled = true
	u.CreatedAt = m.now()
	u.UpdatedAt = nil

	if err := m.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rejected("用户名或邮箱已被占用")
		}
		return fmt.Errorf("创建账号失败: %w", err)
	}
	return nil
}

// Update 校验并保存账号的全部字段
func (m *Manager) Update(ctx context.Context, u *model.User) error {
	descs, err := m.validateUser(ctx, u)
	if err != nil {
		return err
	}
	if len(descs) > 0 {
		return rejected(descs...)
	}

	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)
	return m.save(ctx, u)
}

// Delete 物理删除账号及其角色关联
func (m *Manager) Delete(ctx context.Context, u *model.User) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", u.ID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, u.ID)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return rejected("账号仍被其他数据引用，无法删除")
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return rejected("账号不存在")
		}
		return nil
	})
}

func (m *Manager) save(ctx context.Context, u *model.User) error {
	now := m.now()
	u.UpdatedAt = &now
	err := m.db.WithContext(ctx).
		Model(u).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rejected("用户名或邮箱已被占用")
		}
		return fmt.Errorf("保存账号失败: %w", err)
	}
	return nil
}

// validateUser 返回校验失败描述；查询失败时返回 error
func (m *Manager) validateUser(ctx context.Context, u *model.User) ([]string, error) {
	var descs []string

	name := strings.TrimSpace(u.UserName)
	switch {
	case name == "":
		descs = append(descs, "用户名不能为空")
	case !validUserName(name):
		descs = append(descs, fmt.Sprintf("用户名 '%s' 只能包含字母、数字和 -._@+", name))
	default:
		owner, err := m.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.ID != u.ID {
			descs = append(descs, fmt.Sprintf("用户名 '%s' 已被占用", name))
		}
	}

	email := strings.TrimSpace(u.Email)
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		descs = append(descs, fmt.Sprintf("邮箱 '%s' 格式无效", email))
	} else {
		owner, err := m.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.ID != u.ID {
			descs = append(descs, fmt.Sprintf("邮箱 '%s' 已被使用", email))
		}
	}

	return descs, nil
}

func validUserName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-._@+", r):
		default:
			return false
		}
	}
	return true
}

// ── 密码 ──

// CheckPassword 校验明文密码
func (m *Manager) CheckPassword(u *model.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword 校验当前密码后设置新密码
func (m *Manager) ChangePassword(ctx context.Context, u *model.User, current, next string) error {
	if !m.CheckPassword(u, current) {
		return ErrPasswordMismatch
	}
	return m.setPassword(ctx, u, next)
}

// GeneratePasswordResetToken 生成绑定当前安全戳的重置令牌
func (m *Manager) GeneratePasswordResetToken(_ context.Context, u *model.User) (string, error) {
	return m.tokens.GenerateResetToken(u.ID, u.SecurityStamp, m.opts.ResetTokenTTL)
}

// ResetPassword 用重置令牌设置新密码；成功后安全戳轮换，令牌随即失效
func (m *Manager) ResetPassword(ctx context.Context, u *model.User, token, next string) error {
	claims, err := m.tokens.ParseResetToken(token)
	if err != nil || claims.UserID() != u.ID || claims.Stamp != u.SecurityStamp {
		return rejected("无效的令牌")
	}
	return m.setPassword(ctx, u, next)
}

func (m *Manager) setPassword(ctx context.Context, u *model.User, password string) error {
	if descs := m.opts.Policy.Validate(password); len(descs) > 0 {
		return rejected(descs...)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("密码哈希失败: %w", err)
	}
	u.PasswordHash = string(hash)
	u.SecurityStamp = uuid.NewString()
	return m.save(ctx, u)
}

// ── 锁定 ──

// SetLockoutEnd 设置锁定截止时间，nil 表示解除锁定
func (m *Manager) SetLockoutEnd(ctx context.Context, u *model.User, end *time.Time) error {
	if !u.LockoutEnabled {
		return rejected("该账号未启用锁定")
	}
	u.LockoutEnd = end
	return m.save(ctx, u)
}

// IsLockedOut 账号当前是否处于锁定状态
func (m *Manager) IsLockedOut(u *model.User) bool {
	return u.IsLockedOut(m.now())
}
