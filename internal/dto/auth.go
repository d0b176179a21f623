package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	UserName string `json:"username" binding:"required,max=256"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改本人密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required,max=128"`
}
