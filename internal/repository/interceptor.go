package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
)

// SaveContext 一次 SaveChanges 的上下文
type SaveContext struct {
	ActorID int64
	Now     time.Time
	Entries []*Entry
}

// Actor 调用者 ID 指针，匿名时为 nil
func (sc *SaveContext) Actor() *int64 {
	if sc.ActorID == 0 {
		return nil
	}
	id := sc.ActorID
	return &id
}

// Interceptor 在写库前处理暂存变更，可修改实体或变更类型
type Interceptor interface {
	SavingChanges(ctx context.Context, sc *SaveContext) error
}

// SavedInterceptor 在同一事务内、全部变更写入之后执行，此时新增实体已有 ID
type SavedInterceptor interface {
	SavedChanges(ctx context.Context, tx *gorm.DB, sc *SaveContext) error
}

// ── AuditInterceptor ──

// AuditInterceptor 为 Auditable 实体盖创建/修改戳，并把 SoftDeletable 实体的删除转换为软删除
type AuditInterceptor struct{}

// NewAuditInterceptor 创建审计戳拦截器
func NewAuditInterceptor() *AuditInterceptor {
	return &AuditInterceptor{}
}

func (a *AuditInterceptor) SavingChanges(_ context.Context, sc *SaveContext) error {
	by := sc.Actor()
	for _, e := range sc.Entries {
		audited, isAuditable := e.Entity.(model.Auditable)

		switch e.State {
		case Added:
			if isAuditable {
				audited.StampCreated(sc.Now, by)
			}
		case Modified:
			if isAuditable {
				audited.StampUpdated(sc.Now, by)
			}
		case Deleted:
			if e.Permanent {
				continue
			}
			sd, ok := e.Entity.(model.SoftDeletable)
			if !ok {
				continue
			}
			sd.MarkDeleted(sc.Now)
			if isAuditable {
				audited.StampUpdated(sc.Now, by)
			}
			e.State = Modified
		}
	}
	return nil
}

// ── AuditTrailInterceptor ──

// AuditTrailInterceptor 为 Trailed 实体的每条变更追加一条 AuditTrail
type AuditTrailInterceptor struct{}

// NewAuditTrailInterceptor 创建审计轨迹拦截器
func NewAuditTrailInterceptor() *AuditTrailInterceptor {
	return &AuditTrailInterceptor{}
}

func (a *AuditTrailInterceptor) SavingChanges(context.Context, *SaveContext) error { return nil }

func (a *AuditTrailInterceptor) SavedChanges(_ context.Context, tx *gorm.DB, sc *SaveContext) error {
	var trails []*model.AuditTrail
	for _, e := range sc.Entries {
		t, ok := e.Entity.(model.Trailed)
		if !ok {
			continue
		}

		trail := &model.AuditTrail{
			BaseEntity: model.NewBaseEntity(),
			UserID:     sc.Actor(),
			Action:     trailAction(e.Requested),
			EntityName: t.TrailName(),
			Timestamp:  sc.Now,
		}
		trail.StampCreated(sc.Now, sc.Actor())
		trail.Version = 1
		if id := e.Entity.GetID(); id != 0 {
			trail.EntityID = &id
		}
		if e.Requested != Deleted {
			b, err := json.Marshal(e.Entity)
			if err != nil {
				return fmt.Errorf("序列化审计详情失败: %w", err)
			}
			details := string(b)
			trail.Details = &details
		}
		trails = append(trails, trail)
	}

	if len(trails) == 0 {
		return nil
	}
	return tx.Create(&trails).Error
}

func trailAction(st State) string {
	switch st {
	case Added:
		return model.AuditCreate
	case Deleted:
		return model.AuditDelete
	default:
		return model.AuditUpdate
	}
}
