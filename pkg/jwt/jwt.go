package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// 令牌用途，防止重置令牌被当作访问令牌使用（反之亦然）
const (
	PurposeAccess        = "access"
	PurposeResetPassword = "reset_password"
)

// Claims 自定义 JWT 声明
// sub 为用户 ID，jti 为令牌唯一标识（登出黑名单使用）
type Claims struct {
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Purpose string   `json:"purpose"`
	Stamp   string   `json:"stamp,omitempty"` // 仅重置令牌使用：签发时的安全戳
	jwtv5.RegisteredClaims
}

// UserID 解析 sub 声明，缺失或非法时返回 0
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Manager JWT 管理器
type Manager struct {
	secret         []byte
	issuer         string
	accessTokenTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		issuer:         cfg.Issuer,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// AccessTTL 访问令牌有效期
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTokenTTL
}

// GenerateAccessToken 生成 Access Token，返回令牌与过期时间
func (m *Manager) GenerateAccessToken(userID int64, name, email string, roles []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.accessTokenTTL)
	claims := Claims{
		Name:    name,
		Email:   email,
		Roles:   roles,
		Purpose: PurposeAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(expiresAt),
			Issuer:    m.issuer,
		},
	}

	token, err := m.sign(claims)
	return token, expiresAt, err
}

// GenerateResetToken 生成一次性密码重置令牌，绑定用户当前安全戳
func (m *Manager) GenerateResetToken(userID int64, stamp string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Purpose: PurposeResetPassword,
		Stamp:   stamp,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    m.issuer,
		},
	}
	return m.sign(claims)
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Access Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, PurposeAccess)
}

// ParseResetToken 解析并验证密码重置令牌
func (m *Manager) ParseResetToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, PurposeResetPassword)
}

func (m *Manager) parse(tokenString, purpose string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
