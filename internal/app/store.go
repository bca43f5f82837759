package app

import (
	"context"
	"time"

	"github.com/chatspace/core/internal/models"
	"github.com/chatspace/core/internal/modules/chat"
	"github.com/chatspace/core/internal/modules/message"
	"github.com/chatspace/core/internal/modules/user"
)

// gatewayStore bridges the REST services to the gateway's persistence
// interface so the hub never touches gorm directly.
type gatewayStore struct {
	users    *user.Service
	chats    *chat.Service
	messages *message.Service
}

func (s *gatewayStore) FindUserByID(ctx context.Context, id string) (*models.UserModel, error) {
	return s.users.FindUserByID(ctx, id)
}

func (s *gatewayStore) ListChatIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.chats.ListChatIDsForUser(ctx, userID)
}

func (s *gatewayStore) FindMessageByID(ctx context.Context, id string) (*models.MessageModel, error) {
	return s.messages.FindMessageByID(ctx, id)
}

func (s *gatewayStore) AppendReadMark(ctx context.Context, messageID, userID string) (bool, error) {
	return s.messages.AppendReadMark(ctx, messageID, userID)
}

func (s *gatewayStore) SetUserStatus(ctx context.Context, userID string, status models.UserStatus, lastSeen time.Time) error {
	return s.users.SetUserStatus(ctx, userID, status, lastSeen)
}
