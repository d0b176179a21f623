// Package odata 解析列表接口的 OData 风格查询参数（$filter/$orderby/$top/$skip/$count），
// 并把它们编译成带占位符的 SQL 片段。属性名只能来自调用方提供的白名单，
// 因此生成的 SQL 中不会出现用户输入的标识符。
package odata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/CiscoM31/godata"

	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

// MaxTop 单次查询最多返回的行数
const MaxTop = 100

// Fields 可查询属性白名单：属性名（大小写不敏感）→ 列名
type Fields map[string]string

func (f Fields) column(name string) (string, bool) {
	for k, col := range f {
		if strings.EqualFold(k, name) {
			return col, true
		}
	}
	return "", false
}

// Filter 编译后的 WHERE 片段
type Filter struct {
	SQL  string
	Args []interface{}
}

// Order 单个排序项
type Order struct {
	Column string
	Desc   bool
}

// Options 解析后的列表查询参数
type Options struct {
	Filter  *Filter
	OrderBy []Order
	Top     *int
	Skip    *int
	Count   bool
}

// OrderClause 生成 ORDER BY 子句（不含关键字），无排序时返回空串
func (o *Options) OrderClause() string {
	if o == nil || len(o.OrderBy) == 0 {
		return ""
	}
	parts := make([]string, 0, len(o.OrderBy))
	for _, ob := range o.OrderBy {
		if ob.Desc {
			parts = append(parts, ob.Column+" DESC")
		} else {
			parts = append(parts, ob.Column+" ASC")
		}
	}
	return strings.Join(parts, ", ")
}

func invalid(format string, args ...interface{}) error {
	return pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf(format, args...))
}

// Parse 从 URL 查询参数解析列表选项
// 非 $ 开头的参数忽略；不支持的 $ 参数（如 $select/$expand）返回校验错误
func Parse(values url.Values, fields Fields) (*Options, error) {
	ctx := context.Background()
	opts := &Options{}

	for key, vals := range values {
		if !strings.HasPrefix(key, "$") || len(vals) == 0 {
			continue
		}
		raw := strings.TrimSpace(vals[0])

		switch strings.ToLower(key) {
		case "$filter":
			if raw == "" {
				continue
			}
			f, err := ParseFilter(raw, fields)
			if err != nil {
				return nil, err
			}
			opts.Filter = f

		case "$orderby":
			if raw == "" {
				continue
			}
			ob, err := ParseOrderBy(raw, fields)
			if err != nil {
				return nil, err
			}
			opts.OrderBy = ob

		case "$top":
			top, err := godata.ParseTopString(ctx, raw)
			if err != nil || *top < 0 {
				return nil, invalid("$top 必须是非负整数")
			}
			if int(*top) > MaxTop {
				return nil, invalid("$top 不能超过 %d", MaxTop)
			}
			n := int(*top)
			opts.Top = &n

		case "$skip":
			skip, err := godata.ParseSkipString(ctx, raw)
			if err != nil || *skip < 0 {
				return nil, invalid("$skip 必须是非负整数")
			}
			n := int(*skip)
			opts.Skip = &n

		case "$count":
			count, err := godata.ParseCountString(ctx, raw)
			if err != nil {
				return nil, invalid("$count 只能是 true 或 false")
			}
			opts.Count = bool(*count)

		default:
			return nil, invalid("不支持的查询参数 %s", key)
		}
	}

	return opts, nil
}

// ParseOrderBy 解析 "Name desc, Id" 形式的排序表达式，只允许按白名单属性排序
func ParseOrderBy(raw string, fields Fields) ([]Order, error) {
	q, err := godata.ParseOrderByString(context.Background(), raw)
	if err != nil {
		return nil, invalid("无效的 $orderby: %v", err)
	}

	out := make([]Order, 0, len(q.OrderByItems))
	for _, item := range q.OrderByItems {
		node := item.Tree.Tree
		if node.Token.Type != godata.ExpressionTokenLiteral || len(node.Children) > 0 {
			return nil, invalid("$orderby 只支持属性名: %q", item.Field.Value)
		}
		col, ok := fields.column(node.Token.Value)
		if !ok {
			return nil, invalid("不支持按 %s 排序", node.Token.Value)
		}
		out = append(out, Order{Column: col, Desc: item.Order == godata.DESC})
	}
	return out, nil
}
