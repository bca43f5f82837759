package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/chatspace/core/internal/models"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ListForUser returns all chats the user participates in, most recent first.
func (s *Service) ListForUser(userID string) ([]models.ChatModel, error) {
	var chats []models.ChatModel
	err := s.db.
		Preload("Participants").
		Joins("JOIN chat_participants cp ON cp.chat_model_id = chats.id").
		Where("cp.user_model_id = ?", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}

// Create makes a new chat. For 1:1 chats an existing chat between the same two
// users is returned instead, so the client cannot open duplicate conversations.
func (s *Service) Create(creatorID string, dto *CreateChatDTO) (*models.ChatModel, bool, error) {
	ids := map[string]struct{}{creatorID: {}}
	for _, id := range dto.ParticipantIDs {
		if v := strings.TrimSpace(id); v != "" {
			ids[v] = struct{}{}
		}
	}
	participantIDs := make([]string, 0, len(ids))
	for id := range ids {
		participantIDs = append(participantIDs, id)
	}

	if !dto.IsGroupChat && len(participantIDs) == 2 {
		if existing, err := s.findDirectChat(participantIDs[0], participantIDs[1]); err != nil {
			return nil, false, err
		} else if existing != nil {
			return existing, false, nil
		}
	}

	var participants []models.UserModel
	if err := s.db.Where("id IN ?", participantIDs).Find(&participants).Error; err != nil {
		return nil, false, err
	}
	if len(participants) != len(participantIDs) {
		return nil, false, errors.New("one or more participants do not exist")
	}

	chat := models.ChatModel{
		Name:        strings.TrimSpace(dto.Name),
		IsGroupChat: dto.IsGroupChat,
	}
	if dto.IsGroupChat {
		chat.AdminID = &creatorID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		return tx.Model(&chat).Association("Participants").Append(participants)
	})
	if err != nil {
		return nil, false, err
	}

	created, err := s.GetByID(chat.ID)
	return created, true, err
}

func (s *Service) findDirectChat(userA, userB string) (*models.ChatModel, error) {
	var chatID string
	err := s.db.Table("chat_participants cp").
		Select("cp.chat_model_id").
		Joins("JOIN chats c ON c.id = cp.chat_model_id AND c.is_group_chat = ? AND c.deleted_at IS NULL", false).
		Where("cp.user_model_id IN ?", []string{userA, userB}).
		Group("cp.chat_model_id").
		Having("COUNT(DISTINCT cp.user_model_id) = 2").
		Limit(1).
		Scan(&chatID).Error
	if err != nil || chatID == "" {
		return nil, err
	}
	return s.GetByID(chatID)
}

func (s *Service) GetByID(id string) (*models.ChatModel, error) {
	var chat models.ChatModel
	if err := s.db.Preload("Participants").First(&chat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

// IsParticipant reports whether a user belongs to a chat.
func (s *Service) IsParticipant(chatID, userID string) (bool, error) {
	var count int64
	err := s.db.Table("chat_participants").
		Where("chat_model_id = ? AND user_model_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

// Delete removes a chat and all of its messages. Group chats may only be
// deleted by their admin.
func (s *Service) Delete(chatID, userID string) error {
	chat, err := s.GetByID(chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return errChatNotFound
	}
	if chat.IsGroupChat && (chat.AdminID == nil || *chat.AdminID != userID) {
		return errNotAdmin
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.MessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ChatModel{Base: models.Base{ID: chatID}}).
			Association("Participants").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.ChatModel{}, "id = ?", chatID).Error
	})
}

// AddMembers adds users to a group chat.
func (s *Service) AddMembers(chatID, actorID string, userIDs []string) (*models.ChatModel, error) {
	chat, err := s.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, errChatNotFound
	}
	if !chat.IsGroupChat {
		return nil, errNotGroupChat
	}
	if ok, err := s.IsParticipant(chatID, actorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNotParticipant
	}

	var users []models.UserModel
	if err := s.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(chat).Association("Participants").Append(users); err != nil {
		return nil, err
	}
	return s.GetByID(chatID)
}

// RemoveMember removes a user from a group chat. The admin can remove anyone;
// other participants can only remove themselves (leave).
func (s *Service) RemoveMember(chatID, actorID, userID string) error {
	chat, err := s.GetByID(chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return errChatNotFound
	}
	if !chat.IsGroupChat {
		return errNotGroupChat
	}
	isAdmin := chat.AdminID != nil && *chat.AdminID == actorID
	if !isAdmin && actorID != userID {
		return errNotAdmin
	}

	return s.db.Model(chat).Association("Participants").
		Delete(&models.UserModel{Base: models.Base{ID: userID}})
}

// ListChatIDsForUser is the gateway collaborator used for auto-join on connect.
func (s *Service) ListChatIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Table("chat_participants cp").
		Select("cp.chat_model_id").
		Joins("JOIN chats c ON c.id = cp.chat_model_id AND c.deleted_at IS NULL").
		Where("cp.user_model_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

// SetLastMessage records the chat's newest message id.
func (s *Service) SetLastMessage(chatID, messageID string) error {
	return s.db.Model(&models.ChatModel{}).Where("id = ?", chatID).
		Update("last_message_id", messageID).Error
}
