package model

import "time"

// BookingStatus 预约状态
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid 是否为已知状态
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking 预约表：对应 bookings
type Booking struct {
	BaseEntity
	ResourceID int64         `gorm:"not null;index"                     json:"resource_id"`
	UserID     int64         `gorm:"not null;index"                     json:"user_id"`
	StartTime  time.Time     `gorm:"not null"                           json:"start_time"`
	EndTime    time.Time     `gorm:"not null"                           json:"end_time"`
	Status     BookingStatus `gorm:"type:varchar(16);not null"          json:"status"`
	Notes      string        `gorm:"type:text;not null"                 json:"notes"`

	// 关联
	Resource *Resource       `gorm:"foreignKey:ResourceID;constraint:OnDelete:RESTRICT" json:"resource,omitempty"`
	User     *User           `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"     json:"-"`
	Comments []BookingComment `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"  json:"comments,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }

// BookingComment 预约评论表：对应 booking_comments
type BookingComment struct {
	BaseEntity
	BookingID int64  `gorm:"not null;index"     json:"booking_id"`
	UserID    int64  `gorm:"not null;index"     json:"user_id"`
	Content   string `gorm:"type:text;not null" json:"content"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName 指定表名
func (BookingComment) TableName() string { return "booking_comments" }
