package repository

import (
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
)

// Repository 单一实体类型的通用数据访问接口
// 所有变更先暂存在所属 Session 中，SaveChanges 时统一提交
type Repository[T any] interface {
	// Query 返回可组合、延迟执行的查询；SoftDeletable 实体默认排除已删除行
	Query() *Query[T]
	// Find 主键查找，不存在或已软删除时返回 nil, nil
	Find(id int64) (*T, error)

	Add(entity *T)
	AddRange(entities []*T)
	// Update 暂存整行更新（CreatedAt/CreatedBy 除外），带版本号时做乐观锁校验
	Update(entity *T)
	// Remove 暂存删除；启用审计拦截器时 SoftDeletable 实体转为软删除
	Remove(entity *T)
	// RemovePermanently 暂存物理删除，仅用于管理性清理
	RemovePermanently(entity *T)

	BeginTransaction() error
	Commit() error
	Rollback() error
	SaveChanges() (int, error)
}

// EntityPtr 约束 *T 实现 model.Entity
type EntityPtr[T any] interface {
	*T
	model.Entity
}

type gormRepository[T any, PT EntityPtr[T]] struct {
	session *Session
}

// For 在会话上创建类型 T 的仓储，同一会话的多个仓储共享暂存集与事务
func For[T any, PT EntityPtr[T]](s *Session) Repository[T] {
	return &gormRepository[T, PT]{session: s}
}

func (r *gormRepository[T, PT]) Query() *Query[T] {
	_, soft := any(PT(new(T))).(model.SoftDeletable)
	return newQuery[T](r.session, soft)
}

func (r *gormRepository[T, PT]) Find(id int64) (*T, error) {
	if id <= 0 {
		return nil, nil
	}
	return r.Query().Where("id = ?", id).First()
}

func (r *gormRepository[T, PT]) Add(entity *T) {
	if entity == nil {
		return
	}
	r.session.stage(PT(entity), valueSnapshot(entity), Added, false)
}

func (r *gormRepository[T, PT]) AddRange(entities []*T) {
	for _, e := range entities {
		r.Add(e)
	}
}

func (r *gormRepository[T, PT]) Update(entity *T) {
	if entity == nil {
		return
	}
	r.session.stage(PT(entity), valueSnapshot(entity), Modified, false)
}

func (r *gormRepository[T, PT]) Remove(entity *T) {
	if entity == nil {
		return
	}
	r.session.stage(PT(entity), valueSnapshot(entity), Deleted, false)
}

func (r *gormRepository[T, PT]) RemovePermanently(entity *T) {
	if entity == nil {
		return
	}
	r.session.stage(PT(entity), valueSnapshot(entity), Deleted, true)
}

func (r *gormRepository[T, PT]) BeginTransaction() error { return r.session.BeginTransaction() }

func (r *gormRepository[T, PT]) Commit() error { return r.session.Commit() }

func (r *gormRepository[T, PT]) Rollback() error { return r.session.Rollback() }

func (r *gormRepository[T, PT]) SaveChanges() (int, error) { return r.session.SaveChanges() }
