package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/quochuy14775/SmartResourceBookingBE/pkg/odata"
)

type condition struct {
	query string
	args  []interface{}
}

// Query 可组合的延迟查询，终结方法（List/First/Count/Exists）调用前不访问数据库
// 每个构建方法都返回新的 Query，原查询可继续复用
type Query[T any] struct {
	session        *Session
	softDelete     bool
	includeDeleted bool
	conds          []condition
	orders         []string
	preloads       []string
	limit          int
	offset         int
}

func newQuery[T any](s *Session, softDelete bool) *Query[T] {
	return &Query[T]{session: s, softDelete: softDelete, limit: -1, offset: -1}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.conds = append([]condition(nil), q.conds...)
	c.orders = append([]string(nil), q.orders...)
	c.preloads = append([]string(nil), q.preloads...)
	return &c
}

// Where 追加 AND 条件
func (q *Query[T]) Where(query string, args ...interface{}) *Query[T] {
	c := q.clone()
	c.conds = append(c.conds, condition{query: query, args: args})
	return c
}

// WhereIn column IN (values)；values 为空切片时结果必为空
func (q *Query[T]) WhereIn(column string, values interface{}) *Query[T] {
	return q.Where(column+" IN ?", values)
}

// Order 追加排序，如 "name ASC"
func (q *Query[T]) Order(order string) *Query[T] {
	c := q.clone()
	c.orders = append(c.orders, order)
	return c
}

// Limit 最多返回 n 行，n < 0 表示不限制
func (q *Query[T]) Limit(n int) *Query[T] {
	c := q.clone()
	c.limit = n
	return c
}

// Offset 跳过前 n 行
func (q *Query[T]) Offset(n int) *Query[T] {
	c := q.clone()
	c.offset = n
	return c
}

// Preload 预加载关联
func (q *Query[T]) Preload(association string) *Query[T] {
	c := q.clone()
	c.preloads = append(c.preloads, association)
	return c
}

// IncludeDeleted 包含已软删除的行（仅管理性查询使用）
func (q *Query[T]) IncludeDeleted() *Query[T] {
	c := q.clone()
	c.includeDeleted = true
	return c
}

// Apply 叠加 OData 风格的过滤、排序与分页
func (q *Query[T]) Apply(opts *odata.Options) *Query[T] {
	if opts == nil {
		return q
	}
	c := q
	if opts.Filter != nil {
		c = c.Where(opts.Filter.SQL, opts.Filter.Args...)
	}
	if order := opts.OrderClause(); order != "" {
		c = c.Order(order)
	}
	if opts.Top != nil {
		c = c.Limit(*opts.Top)
	}
	if opts.Skip != nil {
		c = c.Offset(*opts.Skip)
	}
	return c
}

// build 组装 gorm 查询；paged 为 false 时忽略排序与分页（用于计数）
func (q *Query[T]) build(paged bool) *gorm.DB {
	db := q.session.conn().Model(new(T))
	if q.softDelete && !q.includeDeleted {
		db = db.Where("is_deleted = ?", false)
	}
	for _, c := range q.conds {
		db = db.Where(c.query, c.args...)
	}
	if !paged {
		return db
	}
	for _, p := range q.preloads {
		db = db.Preload(p)
	}
	for _, o := range q.orders {
		db = db.Order(o)
	}
	if q.limit >= 0 {
		db = db.Limit(q.limit)
	}
	if q.offset > 0 {
		db = db.Offset(q.offset)
	}
	return db
}

// List 物化全部结果
func (q *Query[T]) List() ([]T, error) {
	var out []T
	if err := q.build(true).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// First 返回第一行，没有结果时返回 nil, nil
func (q *Query[T]) First() (*T, error) {
	var out T
	db := q.build(true)
	if len(q.orders) == 0 {
		db = db.Order("id ASC")
	}
	err := db.Limit(1).Take(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Count 满足条件的总行数（不受 Limit/Offset 影响）
func (q *Query[T]) Count() (int64, error) {
	var n int64
	err := q.build(false).Count(&n).Error
	return n, err
}

// Exists 是否存在满足条件的行
func (q *Query[T]) Exists() (bool, error) {
	n, err := q.Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
