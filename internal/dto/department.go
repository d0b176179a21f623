package dto

// ── 部门模块 DTO ──

// CreateDepartmentRequest 创建部门请求
type CreateDepartmentRequest struct {
	Name        string `json:"name"        binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool  `json:"is_active"` // 缺省为启用
}

// UpdateDepartmentRequest 更新部门请求，nil 字段保持不变
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// DepartmentIDsRequest 批量操作请求
type DepartmentIDsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,max=500,dive,gt=0"`
}
