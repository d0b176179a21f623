package model

// ResourceCategory 资源分类表：对应 resource_categories
type ResourceCategory struct {
	BaseEntity
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text;not null"         json:"description"`
}

// TableName 指定表名
func (ResourceCategory) TableName() string { return "resource_categories" }

// Resource 可预约资源表：对应 resources
type Resource struct {
	BaseEntity
	Name         string `gorm:"type:varchar(150);not null" json:"name"`
	Description  string `gorm:"type:text;not null"         json:"description"`
	CategoryID   int64  `gorm:"not null;index"             json:"category_id"`
	DepartmentID int64  `gorm:"not null;index"             json:"department_id"`
	IsAvailable  bool   `gorm:"not null"                   json:"is_available"`

	// 关联
	Category   *ResourceCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"   json:"category,omitempty"`
	Department *Department       `gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT" json:"department,omitempty"`
}

// TableName 指定表名
func (Resource) TableName() string { return "resources" }
