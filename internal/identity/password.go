package identity

import (
	"fmt"
	"unicode"
)

// PasswordPolicy 密码复杂度要求
type PasswordPolicy struct {
	MinLength        int
	RequireDigit     bool
	RequireUppercase bool
	RequireLowercase bool
	RequireSymbol    bool
}

// Validate 返回全部未满足的要求，满足时返回 nil
func (p PasswordPolicy) Validate(password string) []string {
	var descs []string
	if len([]rune(password)) < p.MinLength {
		descs = append(descs, fmt.Sprintf("密码长度至少为 %d 位", p.MinLength))
	}

	var digit, upper, lower, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if p.RequireDigit && !digit {
		descs = append(descs, "密码必须包含数字")
	}
	if p.RequireUppercase && !upper {
		descs = append(descs, "密码必须包含大写字母")
	}
	if p.RequireLowercase && !lower {
		descs = append(descs, "密码必须包含小写字母")
	}
	if p.RequireSymbol && !symbol {
		descs = append(descs, "密码必须包含符号")
	}
	return descs
}
