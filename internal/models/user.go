package models

import "time"

// UserStatus is the presence status persisted for a user.
type UserStatus string

const (
	UserOnline  UserStatus = "online"
	UserOffline UserStatus = "offline"
)

// UserModel represents a chat account.
type UserModel struct {
	Base
	Name     string     `json:"name"     gorm:"not null"`
	Email    string     `json:"email"    gorm:"uniqueIndex;not null"`
	Password string     `json:"-"        gorm:"not null"`
	Avatar   string     `json:"avatar"`
	Bio      string     `json:"bio"`
	Status   UserStatus `json:"status"   gorm:"type:varchar(16);default:offline;index"`
	LastSeen *time.Time `json:"lastSeen"`
}

func (UserModel) TableName() string { return "users" }

// UserSession tracks signed-in JWT sessions for device/session management.
type UserSession struct {
	Base
	UserID    string     `json:"userId"    gorm:"index;not null"`
	IP        string     `json:"ip"`
	UA        string     `json:"ua"        gorm:"type:text"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revokedAt" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }
