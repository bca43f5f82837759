package models

import "time"

// MessageType distinguishes plain text from file/image payloads.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// MessageModel represents one message inside a chat.
// ChatID is a plain id column; the chat is resolved by lookup when needed.
type MessageModel struct {
	Base
	ChatID    string          `json:"chatId"   gorm:"not null;index"`
	SenderID  string          `json:"-"        gorm:"not null;index"`
	Sender    *UserModel      `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Content   string          `json:"content"  gorm:"type:text"`
	Type      MessageType     `json:"type"     gorm:"type:varchar(16);default:text"`
	FileURL   string          `json:"fileUrl,omitempty"`
	FileName  string          `json:"fileName,omitempty"`
	FileSize  int64           `json:"fileSize,omitempty"`
	IsEdited  bool            `json:"isEdited"  gorm:"default:false"`
	IsDeleted bool            `json:"isDeleted" gorm:"default:false;index"`
	ReadBy    []ReadMarkModel `json:"readBy,omitempty" gorm:"foreignKey:MessageID"`
}

func (MessageModel) TableName() string { return "messages" }

// ReadMarkModel is a per-user acknowledgement that a message has been seen.
// The unique (message_id, user_id) index makes read marks append-once: a second
// insert for the same pair fails, which is what keeps MarkRead idempotent.
type ReadMarkModel struct {
	Base
	MessageID string    `json:"messageId" gorm:"uniqueIndex:idx_read_marks_message_user;not null"`
	UserID    string    `json:"userId"    gorm:"uniqueIndex:idx_read_marks_message_user;not null"`
	ReadAt    time.Time `json:"readAt"    gorm:"not null"`
}

func (ReadMarkModel) TableName() string { return "read_marks" }
