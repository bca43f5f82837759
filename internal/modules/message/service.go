package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chatspace/core/internal/models"
	"github.com/chatspace/core/internal/modules/chat"
	"github.com/chatspace/core/internal/pkg/pagination"
	"github.com/chatspace/core/internal/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db      *gorm.DB
	chatSvc *chat.Service
}

func NewService(db *gorm.DB, chatSvc *chat.Service) *Service {
	return &Service{db: db, chatSvc: chatSvc}
}

// ListForChat returns a page of messages for a chat, newest page first but each
// page in chronological order, excluding soft-deleted messages.
func (s *Service) ListForChat(chatID, userID string, q pagination.Query) ([]models.MessageModel, response.Pagination, error) {
	if ok, err := s.chatSvc.IsParticipant(chatID, userID); err != nil {
		return nil, response.Pagination{}, err
	} else if !ok {
		return nil, response.Pagination{}, errNotParticipant
	}

	tx := s.db.Model(&models.MessageModel{}).
		Preload("Sender").
		Preload("ReadBy").
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("created_at DESC")

	var messages []models.MessageModel
	pag, err := pagination.Paginate(tx, q, &messages)
	if err != nil {
		return nil, pag, err
	}

	// Reverse so the page reads oldest to newest.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, pag, nil
}

// Send persists a message and bumps the chat's last-message pointer.
func (s *Service) Send(senderID string, dto *SendMessageDTO) (*models.MessageModel, error) {
	if strings.TrimSpace(dto.Content) == "" && dto.FileURL == "" {
		return nil, errors.New("message content or file is required")
	}

	if ok, err := s.chatSvc.IsParticipant(dto.ChatID, senderID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNotParticipant
	}

	msgType := models.MessageType(dto.Type)
	switch msgType {
	case models.MessageText, models.MessageImage, models.MessageFile:
	default:
		msgType = models.MessageText
	}

	msg := models.MessageModel{
		ChatID:   dto.ChatID,
		SenderID: senderID,
		Content:  dto.Content,
		Type:     msgType,
		FileURL:  dto.FileURL,
		FileName: dto.FileName,
		FileSize: dto.FileSize,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := s.chatSvc.SetLastMessage(dto.ChatID, msg.ID); err != nil {
		return nil, err
	}
	return s.getByID(msg.ID)
}

func (s *Service) getByID(id string) (*models.MessageModel, error) {
	var msg models.MessageModel
	err := s.db.Preload("Sender").Preload("ReadBy").First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// Update edits a message's content. Sender only; marks the message edited.
func (s *Service) Update(messageID, userID string, dto *UpdateMessageDTO) (*models.MessageModel, error) {
	msg, err := s.getByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.IsDeleted {
		return nil, errMessageNotFound
	}
	if msg.SenderID != userID {
		return nil, errNotSender
	}

	err = s.db.Model(msg).Updates(map[string]interface{}{
		"content":   dto.Content,
		"is_edited": true,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.getByID(messageID)
}

// Delete soft-deletes a message. Sender only.
func (s *Service) Delete(messageID, userID string) error {
	msg, err := s.getByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.IsDeleted {
		return errMessageNotFound
	}
	if msg.SenderID != userID {
		return errNotSender
	}
	return s.db.Model(msg).Update("is_deleted", true).Error
}

// FindMessageByID is the gateway collaborator lookup for send_message fan-out.
// Returns (nil, nil) when the id does not resolve.
func (s *Service) FindMessageByID(ctx context.Context, id string) (*models.MessageModel, error) {
	var msg models.MessageModel
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("is_deleted = ?", false).
		First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// AppendReadMark records that a user has read a message. The unique
// (message_id, user_id) index makes the insert append-once; a duplicate is
// reported as applied=false, not an error.
func (s *Service) AppendReadMark(ctx context.Context, messageID, userID string) (bool, error) {
	mark := models.ReadMarkModel{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&mark)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
