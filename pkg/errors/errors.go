package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ── 错误类别 ──
// 业务错误通过 New(kind, msg) 挂到某一类别上，handler 用 errors.Is 按类别映射状态码

var (
	ErrNotFound            = errors.New("资源不存在")
	ErrDuplicate           = errors.New("资源已存在")
	ErrForbidden           = errors.New("操作被禁止")
	ErrValidation          = errors.New("参数校验失败")
	ErrIdentityOperation   = errors.New("账号操作失败")
	ErrConstraintViolation = errors.New("数据约束冲突")
	ErrUnauthorized        = errors.New("认证失败")

	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
)

// Error 带类别的业务错误
type Error struct {
	Kind error
	Msg  string
}

// New 创建归属于 kind 的业务错误
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Constraint 将驱动层的唯一/外键冲突包装为 ErrConstraintViolation，保留原始错误
func Constraint(err error) error {
	return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
}

// IdentityError 账号子系统拒绝某次变更时返回的错误描述集合
type IdentityError struct {
	Descriptions []string
}

func (e *IdentityError) Error() string {
	if len(e.Descriptions) == 0 {
		return ErrIdentityOperation.Error()
	}
	return strings.Join(e.Descriptions, "; ")
}

func (e *IdentityError) Unwrap() error { return ErrIdentityOperation }

// Kind 返回 err 所属的类别，未归类时返回 nil
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrDuplicate, ErrForbidden, ErrValidation,
		ErrIdentityOperation, ErrConstraintViolation, ErrOptimisticLock, ErrUnauthorized,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
