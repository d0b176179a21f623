// Package currentuser 解析当前请求的调用者。
// Accessor 由认证中间件按请求创建并放入 gin 上下文，不在请求之间共享。
package currentuser

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
)

const contextKey = "current_user"

// UserLookup 按 ID 查找账号（由 identity.Manager 实现）
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Accessor 当前调用者
type Accessor struct {
	claims *jwt.Claims
	lookup UserLookup

	resolved bool
	user     *model.User
}

// New 基于已校验的令牌声明创建 Accessor
func New(claims *jwt.Claims, lookup UserLookup) *Accessor {
	return &Accessor{claims: claims, lookup: lookup}
}

// Anonymous 未认证请求的 Accessor
func Anonymous() *Accessor {
	return &Accessor{}
}

// IsAuthenticated 是否存在已认证的主体
func (a *Accessor) IsAuthenticated() bool {
	return a != nil && a.claims != nil
}

// GetCurrentUser 首次调用时查询账号并缓存，之后直接返回缓存
// 未认证或账号已不存在时返回 nil；查询出错不缓存
func (a *Accessor) GetCurrentUser(ctx context.Context) (*model.User, error) {
	if !a.IsAuthenticated() || a.lookup == nil {
		return nil, nil
	}
	if a.resolved {
		return a.user, nil
	}

	id := a.GetCurrentUserID()
	if id == 0 {
		a.resolved = true
		return nil, nil
	}

	u, err := a.lookup.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.user = u
	a.resolved = true
	return u, nil
}

// GetCurrentUserID 从 sub 声明解析调用者 ID，匿名或无法解析时返回 0
// 0 表示匿名，不是有效的账号 ID
func (a *Accessor) GetCurrentUserID() int64 {
	if !a.IsAuthenticated() {
		return 0
	}
	return a.claims.UserID()
}

// Name 令牌中的用户名
func (a *Accessor) Name() string {
	if !a.IsAuthenticated() {
		return ""
	}
	return a.claims.Name
}

// Roles 令牌中的角色
func (a *Accessor) Roles() []string {
	if !a.IsAuthenticated() {
		return nil
	}
	return a.claims.Roles
}

// IsInRole 角色比较大小写不敏感
func (a *Accessor) IsInRole(role string) bool {
	for _, r := range a.Roles() {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// TokenID 令牌 jti，登出时加入黑名单
func (a *Accessor) TokenID() string {
	if !a.IsAuthenticated() {
		return ""
	}
	return a.claims.ID
}

// TokenExpiresAt 令牌过期时间，无过期声明时返回零值
func (a *Accessor) TokenExpiresAt() time.Time {
	if !a.IsAuthenticated() || a.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return a.claims.ExpiresAt.Time
}

// ── gin 上下文 ──

// Set 将 Accessor 放入请求上下文
func Set(c *gin.Context, a *Accessor) {
	c.Set(contextKey, a)
}

// FromContext 取出请求的 Accessor，未设置时返回匿名 Accessor
func FromContext(c *gin.Context) *Accessor {
	if v, ok := c.Get(contextKey); ok {
		if a, ok := v.(*Accessor); ok && a != nil {
			return a
		}
	}
	return Anonymous()
}
