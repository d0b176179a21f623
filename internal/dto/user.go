package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	UserName     string   `json:"username"      binding:"required,max=256"`
	Email        string   `json:"email"         binding:"required,email,max=256"`
	FullName     string   `json:"full_name"     binding:"required,max=150"`
	Password     string   `json:"password"      binding:"required,max=128"`
	PhoneNumber  *string  `json:"phone_number"  binding:"omitempty,max=32"`
	DepartmentID *int64   `json:"department_id" binding:"omitempty,gt=0"`
	Roles        []string `json:"roles"         binding:"omitempty,dive,required,max=64"`
}

// UpdateUserRequest 更新用户请求，nil 字段保持不变
// Roles: 缺省或 null 不修改角色；[] 清空全部角色；非空则整体替换
type UpdateUserRequest struct {
	Email        *string  `json:"email"         binding:"omitempty,email,max=256"`
	FullName     *string  `json:"full_name"     binding:"omitempty,min=1,max=150"`
	PhoneNumber  *string  `json:"phone_number"  binding:"omitempty,max=32"`
	DepartmentID *int64   `json:"department_id" binding:"omitempty,gt=0"`
	Roles        []string `json:"roles"         binding:"omitempty,dive,required,max=64"`
}

// LockoutRequest 锁定 / 解锁请求
type LockoutRequest struct {
	Lockout *bool `json:"lockout" binding:"required"`
}

// ResetPasswordRequest 管理员重置密码请求
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,max=128"`
}
