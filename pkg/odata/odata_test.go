package odata

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

var deptFields = Fields{
	"Id":        "id",
	"Name":      "name",
	"IsActive":  "is_active",
	"CreatedAt": "created_at",
	"UpdatedAt": "updated_at",
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sql  string
		args []interface{}
	}{
		{"相等", "Name eq 'Engineering'", "name = ?", []interface{}{"Engineering"}},
		{"属性名大小写不敏感", "name EQ 'x'", "name = ?", []interface{}{"x"}},
		{"整数", "Id ge 10", "id >= ?", []interface{}{int64(10)}},
		{"布尔", "IsActive eq false", "is_active = ?", []interface{}{false}},
		{"null", "UpdatedAt eq null", "updated_at IS NULL", nil},
		{"not null", "UpdatedAt ne null", "updated_at IS NOT NULL", nil},
		{"转义单引号", "Name eq 'O''Brien'", "name = ?", []interface{}{"O'Brien"}},
		{
			"and 优先于 or",
			"Id eq 1 or Id eq 2 and IsActive eq true",
			"(id = ? OR (id = ? AND is_active = ?))",
			[]interface{}{int64(1), int64(2), true},
		},
		{
			"括号",
			"(Id eq 1 or Id eq 2) and not (IsActive eq true)",
			"((id = ? OR id = ?) AND NOT is_active = ?)",
			[]interface{}{int64(1), int64(2), true},
		},
		{"in 列表", "Id in (1, 2)", "id IN ?", []interface{}{[]interface{}{int64(1), int64(2)}}},
		{"contains", "contains(Name,'Eng')", `LOWER(name) LIKE ? ESCAPE '\'`, []interface{}{"%eng%"}},
		{"startswith 转义通配符", "startswith(Name, '50%_')", `LOWER(name) LIKE ? ESCAPE '\'`, []interface{}{`50\%\_%`}},
		{
			"日期时间",
			"CreatedAt gt 2024-01-02T03:04:05Z",
			"created_at > ?",
			[]interface{}{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.in, deptFields)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, f.SQL)
			assert.Equal(t, tt.args, f.Args)
		})
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, in := range []string{
		"Password eq 'x'",   // 不在白名单
		"Name eq",           // 缺少值
		"Name like 'x'",     // 未知运算符
		"Name eq 'x",        // 字符串未闭合
		"(Name eq 'x'",      // 括号未闭合
		"Name eq 'x' Id",    // 多余内容
		"Id gt null",        // null 只能 eq/ne
		"length(Name) eq 3", // 未知函数
		"contains(Name, 3)", // 参数类型错误
		"Name eq 'x'; drop", // 非法字符
		"Id in 3",           // in 右侧不是列表
		"Name has 'x'",      // 不支持的运算符
		"Name",              // 不是条件表达式
	} {
		_, err := ParseFilter(in, deptFields)
		assert.ErrorIs(t, err, pkgerrors.ErrValidation, in)
	}
}

func TestParse(t *testing.T) {
	q := url.Values{}
	q.Set("$filter", "IsActive eq true")
	q.Set("$orderby", "Name desc, Id")
	q.Set("$top", "20")
	q.Set("$skip", "40")
	q.Set("$count", "true")
	q.Set("lang", "vi") // 非 $ 参数忽略

	opts, err := Parse(q, deptFields)
	require.NoError(t, err)

	require.NotNil(t, opts.Filter)
	assert.Equal(t, "is_active = ?", opts.Filter.SQL)
	assert.Equal(t, "name DESC, id ASC", opts.OrderClause())
	assert.Equal(t, 20, *opts.Top)
	assert.Equal(t, 40, *opts.Skip)
	assert.True(t, opts.Count)
}

func TestParse_TopNotNumber(t *testing.T) {
	_, err := Parse(url.Values{"$top": {"ten"}}, deptFields)
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestParseOrderBy_OnlyProperties(t *testing.T) {
	_, err := ParseOrderBy("tolower(Name)", deptFields)
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = ParseOrderBy("Name,", deptFields)
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	ob, err := ParseOrderBy("CreatedAt DESC", deptFields)
	require.NoError(t, err)
	assert.Equal(t, []Order{{Column: "created_at", Desc: true}}, ob)
}

func TestParse_Empty(t *testing.T) {
	opts, err := Parse(url.Values{}, deptFields)
	require.NoError(t, err)
	assert.Nil(t, opts.Filter)
	assert.Nil(t, opts.Top)
	assert.Equal(t, "", opts.OrderClause())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"$top":     "101",
		"$skip":    "-1",
		"$count":   "maybe",
		"$orderby": "Name sideways",
		"$select":  "Name",
	}
	for key, val := range cases {
		q := url.Values{}
		q.Set(key, val)
		_, err := Parse(q, deptFields)
		assert.ErrorIs(t, err, pkgerrors.ErrValidation, key)
	}
}
