package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/currentuser"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/response"
)

// TokenBlacklist 查询 jti 是否已被吊销（由 redis.Client 实现）
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 通过后为本次请求创建 currentuser.Accessor 放入上下文
// blacklist 为 nil 时跳过黑名单检查；Redis 出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenBlacklist, lookup currentuser.UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			return
		}

		claims, err := jwtMgr.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("检查 Token 黑名单失败，降级放行", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				return
			}
		}

		currentuser.Set(c, currentuser.New(claims, lookup))
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一（大小写不敏感），须挂在 JWTAuth 之后
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessor := currentuser.FromContext(c)
		if !accessor.IsAuthenticated() {
			response.Unauthorized(c, 10002, "未认证")
			return
		}

		for _, r := range allowedRoles {
			if accessor.IsInRole(r) {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
	}
}
