package model

// Department 部门表：对应 departments
type Department struct {
	BaseEntity
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text;not null"         json:"description"`
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// TrailName 审计轨迹中的实体名
func (Department) TrailName() string { return "Department" }

// NewDepartment 创建启用状态的部门
func NewDepartment(name, description string) *Department {
	return &Department{BaseEntity: NewBaseEntity(), Name: name, Description: description}
}
