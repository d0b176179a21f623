package model

import "time"

// LockoutForever 永久锁定的哨兵值（无定时锁定）
var LockoutForever = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// 内置角色
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleUser    = "USER"
)

// User 账号表：对应 users
// 账号由 identity 子系统管理，删除为物理删除
type User struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement"                     json:"id"`
	UserName             string     `gorm:"type:varchar(256);not null"                   json:"user_name"`
	NormalizedUserName   string     `gorm:"type:varchar(256);not null;uniqueIndex"       json:"-"`
	Email                string     `gorm:"type:varchar(256);not null"                   json:"email"`
	NormalizedEmail      string     `gorm:"type:varchar(256);not null;uniqueIndex"       json:"-"`
	PasswordHash         string     `gorm:"type:varchar(255);not null"                   json:"-"`
	SecurityStamp        string     `gorm:"type:varchar(64);not null"                    json:"-"`
	FullName             string     `gorm:"type:varchar(150);not null"                   json:"full_name"`
	PhoneNumber          *string    `gorm:"type:varchar(32)"                             json:"phone_number,omitempty"`
	DepartmentID         *int64     `gorm:"index"                                        json:"department_id,omitempty"`
	EmailConfirmed       bool       `gorm:"not null"                                     json:"email_confirmed"`
	PhoneNumberConfirmed bool       `gorm:"not null"                                     json:"phone_number_confirmed"`
	LockoutEnabled       bool       `gorm:"not null"                                     json:"lockout_enabled"`
	LockoutEnd           *time.Time `json:"lockout_end,omitempty"`
	AccessFailedCount    int        `gorm:"not null"                                     json:"access_failed_count"`
	CreatedAt            time.Time  `gorm:"not null"                                     json:"created_at"`
	UpdatedAt            *time.Time `gorm:"autoUpdateTime:false"                         json:"updated_at,omitempty"`

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT" json:"department,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

func (u *User) GetID() int64 { return u.ID }

// IsLockedOut 锁定截止时间晚于 now 时视为锁定
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Role 角色表：对应 roles
type Role struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"              json:"id"`
	Name           string `gorm:"type:varchar(64);not null"             json:"name"`
	NormalizedName string `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

func (r *Role) GetID() int64 { return r.ID }

// UserRole 用户-角色关联表：对应 user_roles
type UserRole struct {
	UserID int64 `gorm:"primaryKey"`
	RoleID int64 `gorm:"primaryKey"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role *Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (UserRole) TableName() string { return "user_roles" }
