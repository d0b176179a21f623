package model

import "time"

// 审计动作
const (
	AuditCreate = "Create"
	AuditUpdate = "Update"
	AuditDelete = "Delete"
)

// AuditTrail 审计轨迹表：对应 audit_trails
type AuditTrail struct {
	BaseEntity
	UserID     *int64    `gorm:"index"                     json:"user_id,omitempty"`
	Action     string    `gorm:"type:varchar(16);not null" json:"action"`
	EntityName string    `gorm:"type:varchar(64);not null" json:"entity_name"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Details    *string   `gorm:"type:text"                 json:"details,omitempty"`
	Timestamp  time.Time `gorm:"not null"                  json:"timestamp"`
}

// TableName 指定表名
func (AuditTrail) TableName() string { return "audit_trails" }
