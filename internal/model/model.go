package model

// All 返回全部持久化模型，顺序满足外键依赖
// 生产环境由 golang-migrate 建表，测试环境用于 AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Department{},
		&ResourceCategory{},
		&User{},
		&Role{},
		&UserRole{},
		&Resource{},
		&Booking{},
		&BookingComment{},
		&AuditTrail{},
	}
}
