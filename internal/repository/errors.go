package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/quochuy14775/SmartResourceBookingBE/pkg/errors"
)

// translate 将驱动层约束冲突归入 ErrConstraintViolation，其余错误原样返回
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pkgerrors.ErrConstraintViolation) || errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return pkgerrors.Constraint(err)
	}
	// CHECK 约束等未被 TranslateError 覆盖的情况
	if strings.Contains(strings.ToLower(err.Error()), "constraint failed") ||
		strings.Contains(err.Error(), "SQLSTATE 23") {
		return pkgerrors.Constraint(err)
	}
	return err
}
