package message

import "errors"

var (
	errMessageNotFound = errors.New("message not found")
	errNotSender       = errors.New("only the sender may modify this message")
	errNotParticipant  = errors.New("not a participant of this chat")
)

type SendMessageDTO struct {
	ChatID   string `json:"chatId" binding:"required"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

type UpdateMessageDTO struct {
	Content string `json:"content" binding:"required"`
}
