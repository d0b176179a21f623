package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "smart-resource-booking",
		AccessTokenTTL: 2 * time.Hour,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, exp, err := m.GenerateAccessToken(42, "alice", "alice@example.com", []string{"ADMIN", "USER"})
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}
	if time.Until(exp) <= time.Hour {
		t.Errorf("过期时间应约为 2 小时后，实际=%v", exp)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID() != 42 {
		t.Errorf("期望 UserID=42，实际=%d", claims.UserID())
	}
	if claims.Name != "alice" {
		t.Errorf("期望 Name=alice，实际=%s", claims.Name)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("期望 Email=alice@example.com，实际=%s", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "ADMIN" {
		t.Errorf("角色声明不正确: %v", claims.Roles)
	}
	if claims.Issuer != "smart-resource-booking" {
		t.Errorf("期望 Issuer=smart-resource-booking，实际=%s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "smart-resource-booking",
		AccessTokenTTL: -time.Minute,
	})

	token, _, err := m.GenerateAccessToken(1, "bob", "", nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	if _, err := m.ParseToken(token); err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际=%v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-for-unit-testing-99",
		Issuer:         "smart-resource-booking",
		AccessTokenTTL: time.Hour,
	})

	token, _, _ := other.GenerateAccessToken(1, "bob", "", nil)
	if _, err := m.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager()
	claims := Claims{
		Purpose:          PurposeAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{Subject: "1", Issuer: "smart-resource-booking"},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, claims).SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}

	if _, err := m.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestResetToken_PurposeBound(t *testing.T) {
	m := newTestManager()

	reset, err := m.GenerateResetToken(7, "stamp-1", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateResetToken 失败: %v", err)
	}

	claims, err := m.ParseResetToken(reset)
	if err != nil {
		t.Fatalf("ParseResetToken 失败: %v", err)
	}
	if claims.UserID() != 7 || claims.Stamp != "stamp-1" {
		t.Errorf("重置令牌声明不正确: %+v", claims)
	}

	// 重置令牌不能当作访问令牌
	if _, err := m.ParseToken(reset); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}

	access, _, _ := m.GenerateAccessToken(7, "bob", "", nil)
	if _, err := m.ParseResetToken(access); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestClaims_UserIDFallback(t *testing.T) {
	c := &Claims{}
	if c.UserID() != 0 {
		t.Errorf("缺失 sub 时应返回 0，实际=%d", c.UserID())
	}
	c.Subject = "not-a-number"
	if c.UserID() != 0 {
		t.Errorf("非法 sub 时应返回 0，实际=%d", c.UserID())
	}
}
