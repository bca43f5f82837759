package models

// ChatModel represents a direct or group conversation.
//
// LastMessageID is a plain id column resolved by lookup; there is no in-memory
// back-pointer between Chat and Message in either direction.
type ChatModel struct {
	Base
	Name          string      `json:"name"`
	IsGroupChat   bool        `json:"isGroupChat"   gorm:"default:false"`
	AdminID       *string     `json:"adminId"       gorm:"index"`
	LastMessageID *string     `json:"lastMessageId" gorm:"index"`
	Avatar        string      `json:"avatar"`
	Participants  []UserModel `json:"participants,omitempty" gorm:"many2many:chat_participants;"`
}

func (ChatModel) TableName() string { return "chats" }
