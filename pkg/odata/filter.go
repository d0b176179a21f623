package odata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CiscoM31/godata"
)

// 语法树由 godata 解析，这里只负责把允许的节点编译成带占位符的 SQL
// 支持：eq/ne/gt/ge/lt/le、and/or/not、in、contains/startswith/endswith、null

const (
	maxDepth   = 32
	maxInItems = 100
)

var comparisonOps = map[string]string{
	"eq": "=",
	"ne": "<>",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

type compiler struct {
	fields Fields
	args   []interface{}
}

// ParseFilter 将 $filter 表达式编译为 SQL 片段
func ParseFilter(src string, fields Fields) (*Filter, error) {
	q, err := godata.ParseFilterString(context.Background(), src)
	if err != nil {
		return nil, invalid("无效的 $filter: %v", err)
	}
	c := &compiler{fields: fields}
	sql, err := c.boolExpr(q.Tree, 0)
	if err != nil {
		return nil, err
	}
	return &Filter{SQL: sql, Args: c.args}, nil
}

func (c *compiler) boolExpr(n *godata.ParseNode, depth int) (string, error) {
	if depth > maxDepth {
		return "", invalid("$filter 嵌套过深")
	}

	switch n.Token.Type {
	case godata.ExpressionTokenLogical:
		op := strings.ToLower(n.Token.Value)
		switch op {
		case "and", "or":
			if len(n.Children) != 2 {
				return "", invalid("%s 需要两个操作数", op)
			}
			left, err := c.boolExpr(n.Children[0], depth+1)
			if err != nil {
				return "", err
			}
			right, err := c.boolExpr(n.Children[1], depth+1)
			if err != nil {
				return "", err
			}
			return "(" + left + " " + strings.ToUpper(op) + " " + right + ")", nil

		case "not":
			if len(n.Children) != 1 {
				return "", invalid("not 需要一个操作数")
			}
			inner, err := c.boolExpr(n.Children[0], depth+1)
			if err != nil {
				return "", err
			}
			return "NOT " + inner, nil

		case "in":
			return c.in(n)
		}
		if _, ok := comparisonOps[op]; ok {
			return c.comparison(n, op)
		}
		return "", invalid("不支持的运算符 %s", n.Token.Value)

	case godata.ExpressionTokenFunc:
		return c.function(n)
	}
	return "", invalid("$filter 中 %q 不是条件表达式", n.Token.Value)
}

func (c *compiler) property(n *godata.ParseNode) (string, error) {
	if n.Token.Type != godata.ExpressionTokenLiteral || len(n.Children) > 0 {
		return "", invalid("$filter 中 %q 应为属性名", n.Token.Value)
	}
	col, ok := c.fields.column(n.Token.Value)
	if !ok {
		return "", invalid("不支持按 %s 过滤", n.Token.Value)
	}
	return col, nil
}

func (c *compiler) comparison(n *godata.ParseNode, op string) (string, error) {
	if len(n.Children) != 2 {
		return "", invalid("%s 需要两个操作数", op)
	}
	col, err := c.property(n.Children[0])
	if err != nil {
		return "", err
	}

	rhs := n.Children[1]
	if rhs.Token.Type == godata.ExpressionTokenNull {
		switch op {
		case "eq":
			return col + " IS NULL", nil
		case "ne":
			return col + " IS NOT NULL", nil
		default:
			return "", invalid("null 只能与 eq/ne 一起使用")
		}
	}

	val, err := value(rhs)
	if err != nil {
		return "", err
	}
	c.args = append(c.args, val)
	return col + " " + comparisonOps[op] + " ?", nil
}

func (c *compiler) in(n *godata.ParseNode) (string, error) {
	if len(n.Children) != 2 {
		return "", invalid("in 需要两个操作数")
	}
	col, err := c.property(n.Children[0])
	if err != nil {
		return "", err
	}
	list := n.Children[1]
	if list.Token.Type != godata.TokenTypeListExpr || len(list.Children) == 0 {
		return "", invalid("in 的右侧必须是值列表")
	}
	if len(list.Children) > maxInItems {
		return "", invalid("in 列表不能超过 %d 项", maxInItems)
	}

	vals := make([]interface{}, 0, len(list.Children))
	for _, item := range list.Children {
		v, err := value(item)
		if err != nil {
			return "", err
		}
		vals = append(vals, v)
	}
	c.args = append(c.args, vals)
	return col + " IN ?", nil
}

func (c *compiler) function(n *godata.ParseNode) (string, error) {
	fn := strings.ToLower(n.Token.Value)
	var pattern func(string) string
	switch fn {
	case "contains":
		pattern = func(s string) string { return "%" + s + "%" }
	case "startswith":
		pattern = func(s string) string { return s + "%" }
	case "endswith":
		pattern = func(s string) string { return "%" + s }
	default:
		return "", invalid("不支持的函数 %s", n.Token.Value)
	}

	if len(n.Children) != 2 {
		return "", invalid("%s 需要两个参数", fn)
	}
	col, err := c.property(n.Children[0])
	if err != nil {
		return "", err
	}
	arg := n.Children[1]
	if arg.Token.Type != godata.ExpressionTokenString {
		return "", invalid("%s 的第二个参数必须是字符串", fn)
	}

	c.args = append(c.args, pattern(escapeLike(strings.ToLower(unquote(arg.Token.Value)))))
	return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", col), nil
}

// value 把字面量节点转换为 Go 值
func value(n *godata.ParseNode) (interface{}, error) {
	if len(n.Children) > 0 {
		return nil, invalid("$filter 中 %q 应为字面量", n.Token.Value)
	}
	raw := n.Token.Value

	switch n.Token.Type {
	case godata.ExpressionTokenString:
		return unquote(raw), nil
	case godata.ExpressionTokenInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalid("整数超出范围 %q", raw)
		}
		return v, nil
	case godata.ExpressionTokenFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalid("无法识别的数值 %q", raw)
		}
		return v, nil
	case godata.ExpressionTokenBoolean:
		return raw == "true", nil
	case godata.ExpressionTokenDateTime:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, invalid("无法识别的时间 %q", raw)
		}
		return ts.UTC(), nil
	case godata.ExpressionTokenDate:
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, invalid("无法识别的日期 %q", raw)
		}
		return d, nil
	case godata.ExpressionTokenGuid:
		return raw, nil
	}
	return nil, invalid("$filter 中 %q 应为字面量", raw)
}

// unquote 去掉字符串字面量两端的单引号（'' 已由解析器还原）
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
