package dto

import "time"

// ── 认证模块响应 ──

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // 有效期（秒）
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID             int64               `json:"id"`
	UserName       string              `json:"username"`
	Email          string              `json:"email"`
	FullName       string              `json:"full_name"`
	PhoneNumber    *string             `json:"phone_number,omitempty"`
	Department     *DepartmentResponse `json:"department,omitempty"`
	Roles          []string            `json:"roles"`
	EmailConfirmed bool                `json:"email_confirmed"`
	IsLockedOut    bool                `json:"is_locked_out"`
	LockoutEnd     *time.Time          `json:"lockout_end,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      *time.Time          `json:"updated_at,omitempty"`
}

// DepartmentResponse 部门简要信息
type DepartmentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ImportUserResponse 批量导入用户响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ── 部门模块响应 ──

// DepartmentDetailResponse 部门详情
type DepartmentDetailResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// BulkResultResponse 批量操作结果，仅包含实际发生变化的记录
type BulkResultResponse struct {
	Affected []int64 `json:"affected"`
}
