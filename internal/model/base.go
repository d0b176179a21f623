package model

import "time"

// ── 实体能力接口 ──
// 工作单元的拦截器按这些接口识别实体，实体通过嵌入 BaseEntity 获得全部能力

// Entity 可由通用仓储管理的实体
type Entity interface {
	GetID() int64
}

// Auditable 提交时盖创建/修改戳
type Auditable interface {
	StampCreated(at time.Time, by *int64)
	StampUpdated(at time.Time, by *int64)
}

// SoftDeletable 删除即置 IsDeleted，读路径默认过滤
type SoftDeletable interface {
	MarkDeleted(at time.Time)
	Deleted() bool
}

// Versioned 乐观锁版本号
type Versioned interface {
	GetVersion() int
	SetVersion(v int)
}

// Trailed 需要写入审计轨迹的实体，返回轨迹中的实体名
type Trailed interface {
	TrailName() string
}

// BaseEntity 领域实体公共字段
// UpdatedAt 在首次修改前为 nil；CreatedAt 写入后不再参与更新
type BaseEntity struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"        json:"id"`
	CreatedAt time.Time  `gorm:"not null"                        json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"            json:"updated_at,omitempty"`
	CreatedBy *int64     `json:"created_by,omitempty"`
	UpdatedBy *int64     `json:"updated_by,omitempty"`
	IsActive  bool       `gorm:"not null"                        json:"is_active"`
	IsDeleted bool       `gorm:"not null;index"                  json:"-"`
	Version   int        `gorm:"not null"                        json:"version"`
}

// NewBaseEntity 新实体的默认状态：启用、未删除
func NewBaseEntity() BaseEntity {
	return BaseEntity{IsActive: true}
}

func (b *BaseEntity) GetID() int64 { return b.ID }

func (b *BaseEntity) StampCreated(at time.Time, by *int64) {
	b.CreatedAt = at
	b.CreatedBy = by
}

func (b *BaseEntity) StampUpdated(at time.Time, by *int64) {
	b.UpdatedAt = &at
	b.UpdatedBy = by
}

func (b *BaseEntity) MarkDeleted(at time.Time) {
	b.IsDeleted = true
	b.UpdatedAt = &at
}

func (b *BaseEntity) Deleted() bool { return b.IsDeleted }

func (b *BaseEntity) GetVersion() int { return b.Version }

func (b *BaseEntity) SetVersion(v int) { b.Version = v }
