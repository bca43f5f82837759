package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/chatspace/core/internal/models"
)

// fakeStore is an in-memory Store for hub tests.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*models.UserModel
	chats     map[string][]string // user id -> chat ids
	messages  map[string]*models.MessageModel
	readMarks map[string]map[string]struct{} // message id -> user ids
	statuses  map[string]models.UserStatus
	errs      map[string]error // method name -> forced error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*models.UserModel),
		chats:     make(map[string][]string),
		messages:  make(map[string]*models.MessageModel),
		readMarks: make(map[string]map[string]struct{}),
		statuses:  make(map[string]models.UserStatus),
		errs:      make(map[string]error),
	}
}

func (s *fakeStore) addUser(id, name string) *models.UserModel {
	u := &models.UserModel{Base: models.Base{ID: id}, Name: name}
	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return u
}

func (s *fakeStore) addMessage(id, chatID, senderID, content string) *models.MessageModel {
	m := &models.MessageModel{
		Base:     models.Base{ID: id},
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
	}
	s.mu.Lock()
	s.messages[id] = m
	s.mu.Unlock()
	return m
}

func (s *fakeStore) FindUserByID(_ context.Context, id string) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["FindUserByID"]; err != nil {
		return nil, err
	}
	return s.users[id], nil
}

func (s *fakeStore) ListChatIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["ListChatIDsForUser"]; err != nil {
		return nil, err
	}
	return append([]string(nil), s.chats[userID]...), nil
}

func (s *fakeStore) FindMessageByID(_ context.Context, id string) (*models.MessageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["FindMessageByID"]; err != nil {
		return nil, err
	}
	return s.messages[id], nil
}

func (s *fakeStore) AppendReadMark(_ context.Context, messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["AppendReadMark"]; err != nil {
		return false, err
	}
	marks, ok := s.readMarks[messageID]
	if !ok {
		marks = make(map[string]struct{})
		s.readMarks[messageID] = marks
	}
	if _, seen := marks[userID]; seen {
		return false, nil
	}
	marks[userID] = struct{}{}
	return true, nil
}

func (s *fakeStore) SetUserStatus(_ context.Context, userID string, status models.UserStatus, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["SetUserStatus"]; err != nil {
		return err
	}
	s.statuses[userID] = status
	return nil
}

func (s *fakeStore) statusOf(userID string) models.UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[userID]
}
