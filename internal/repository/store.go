package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
)

var (
	ErrTransactionActive = errors.New("会话已存在未结束的事务")
	ErrNoTransaction     = errors.New("会话没有进行中的事务")
)

// Store 进程级数据访问入口，持有连接池与拦截器链
type Store struct {
	db           *gorm.DB
	interceptors []Interceptor
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// Option Store 构造选项
type Option func(*Store)

// WithInterceptors 按顺序注册提交拦截器
func WithInterceptors(ics ...Interceptor) Option {
	return func(s *Store) { s.interceptors = append(s.interceptors, ics...) }
}

// WithMetrics 记录提交次数与暂存规模
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore 创建 Store
func NewStore(db *gorm.DB, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{db: db, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB 底层连接（identity 子系统与健康检查使用）
func (s *Store) DB() *gorm.DB {
	return s.db
}

// NewSession 为一次请求打开工作单元
// actorID 为调用者 ID，匿名时传 0；会话不可跨请求共享
func (s *Store) NewSession(ctx context.Context, actorID int64) *Session {
	return &Session{store: s, ctx: ctx, actorID: actorID}
}

// ── Session ──

// State 暂存变更的类型
type State int

const (
	Added State = iota + 1
	Modified
	Deleted
)

func (st State) String() string {
	switch st {
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	}
	return fmt.Sprintf("State(%d)", int(st))
}

// Entry 一条暂存变更
// Requested 为调用方暂存时的意图，State 为拦截器处理后实际落库的动作
type Entry struct {
	Entity    model.Entity
	Requested State
	State     State
	Permanent bool // 物理删除，跳过软删除转换

	snapshot func() func() // 调用时拷贝当前值，返回恢复函数
}

// Session 一次请求内的工作单元：暂存变更，SaveChanges 时一次性提交
type Session struct {
	store   *Store
	ctx     context.Context
	actorID int64
	tx      *gorm.DB
	entries []*Entry
}

// Context 会话绑定的请求上下文
func (s *Session) Context() context.Context { return s.ctx }

// ActorID 调用者 ID，匿名为 0
func (s *Session) ActorID() int64 { return s.actorID }

// Pending 当前暂存的变更数
func (s *Session) Pending() int { return len(s.entries) }

// InTransaction 是否存在显式事务
func (s *Session) InTransaction() bool { return s.tx != nil }

// conn 显式事务中返回事务连接，否则返回绑定请求上下文的连接
func (s *Session) conn() *gorm.DB {
	if s.tx != nil {
		return s.tx
	}
	return s.store.db.WithContext(s.ctx)
}

func (s *Session) stage(e model.Entity, snapshot func() func(), state State, permanent bool) {
	s.entries = append(s.entries, &Entry{
		Entity:    e,
		Requested: state,
		State:     state,
		Permanent: permanent,
		snapshot:  snapshot,
	})
}

// valueSnapshot 拷贝实体当前值，返回恢复函数
func valueSnapshot[T any](entity *T) func() func() {
	return func() func() {
		saved := *entity
		return func() { *entity = saved }
	}
}

// restoreAll 提交失败时把实体恢复到拦截器执行前的状态（ID、审计戳、版本号、删除标志）
// 同一实体多次暂存时逆序恢复，最终回到最早的快照
func restoreAll(restores []func()) {
	for i := len(restores) - 1; i >= 0; i-- {
		restores[i]()
	}
}

// BeginTransaction 开启显式事务，之后的查询与提交都在该事务内执行
// 事务一旦开始不随请求取消而中断
func (s *Session) BeginTransaction() error {
	if s.tx != nil {
		return ErrTransactionActive
	}
	tx := s.store.db.WithContext(context.WithoutCancel(s.ctx)).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	s.tx = tx
	return nil
}

// Commit 提交显式事务
func (s *Session) Commit() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit().Error; err != nil {
		return translate(err)
	}
	return nil
}

// Rollback 回滚显式事务并丢弃未提交的暂存变更；没有事务时直接返回，便于 defer
func (s *Session) Rollback() error {
	s.entries = nil
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback().Error; err != nil {
		s.store.logger.Warn("事务回滚失败", zap.Error(err))
		return err
	}
	return nil
}

// SaveChanges 执行拦截器链，然后在一个事务内按暂存顺序写入全部变更
// 显式事务存在时以 savepoint 嵌套；任何失败都整体回滚
// 无论成功与否，本次暂存的变更都会被清空
func (s *Session) SaveChanges() (int, error) {
	entries := s.entries
	s.entries = nil
	if len(entries) == 0 {
		return 0, nil
	}

	restores := make([]func(), 0, len(entries))
	for _, e := range entries {
		if e.snapshot != nil {
			restores = append(restores, e.snapshot())
		}
	}

	ctx := context.WithoutCancel(s.ctx)
	sc := &SaveContext{
		ActorID: s.actorID,
		Now:     s.store.db.NowFunc(),
		Entries: entries,
	}

	for _, ic := range s.store.interceptors {
		if err := ic.SavingChanges(ctx, sc); err != nil {
			restoreAll(restores)
			s.store.metrics.ObserveSave("error", len(entries))
			return 0, err
		}
	}

	conn := s.store.db.WithContext(ctx)
	if s.tx != nil {
		conn = s.tx
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		for _, e := range sc.Entries {
			if err := flushEntry(tx, e); err != nil {
				return err
			}
		}
		for _, ic := range s.store.interceptors {
			if after, ok := ic.(SavedInterceptor); ok {
				if err := after.SavedChanges(ctx, tx, sc); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		restoreAll(restores)
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.store.metrics.ObserveSave("conflict", len(entries))
		} else {
			s.store.metrics.ObserveSave("error", len(entries))
		}
		return 0, translate(err)
	}

	s.store.metrics.ObserveSave("ok", len(entries))
	return len(sc.Entries), nil
}

// flushEntry 写入一条变更
func flushEntry(tx *gorm.DB, e *Entry) error {
	switch e.State {
	case Added:
		if v, ok := e.Entity.(model.Versioned); ok && v.GetVersion() == 0 {
			v.SetVersion(1)
		}
		return tx.Omit(clause.Associations).Create(e.Entity).Error

	case Modified:
		q := tx.Model(e.Entity)
		v, versioned := e.Entity.(model.Versioned)
		if versioned {
			old := v.GetVersion()
			v.SetVersion(old + 1)
			q = q.Where("version = ?", old)
		}
		res := q.Select("*").Omit("id", "created_at", "created_by", clause.Associations).Updates(e.Entity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if versioned {
				return pkgerrors.ErrOptimisticLock
			}
			return pkgerrors.New(pkgerrors.ErrNotFound, "待更新的记录不存在")
		}
		return nil

	case Deleted:
		return tx.Delete(e.Entity).Error
	}
	return fmt.Errorf("未知的暂存状态 %s", e.State)
}
