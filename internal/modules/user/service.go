package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chatspace/core/internal/models"
	sessionpkg "github.com/chatspace/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))

	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := models.UserModel{
		Name:     strings.TrimSpace(dto.Name),
		Email:    email,
		Password: string(hash),
		Status:   models.UserOffline,
	}
	return &u, s.db.Create(&u).Error
}

func (s *Service) Login(email, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Constant-ish response time against account probing.
			time.Sleep(500 * time.Millisecond)
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errWrongPassword
	}

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// List returns all users except the requester, for the contact picker.
func (s *Service) List(exceptUserID string) ([]models.UserModel, error) {
	var users []models.UserModel
	err := s.db.Where("id <> ?", exceptUserID).Order("name ASC").Find(&users).Error
	return users, err
}

func (s *Service) Search(q, exceptUserID string) ([]models.UserModel, error) {
	like := "%" + strings.TrimSpace(q) + "%"
	var users []models.UserModel
	err := s.db.Where("id <> ? AND (name LIKE ? OR email LIKE ?)", exceptUserID, like, like).
		Order("name ASC").Limit(20).Find(&users).Error
	return users, err
}

func (s *Service) UpdateProfile(userID string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	updates := map[string]interface{}{}
	if dto.Name != nil && strings.TrimSpace(*dto.Name) != "" {
		updates["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
	}
	if dto.Bio != nil {
		updates["bio"] = *dto.Bio
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.UserModel{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(userID)
}

// FindUserByID is the gateway collaborator lookup used at socket admission.
func (s *Service) FindUserByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SetUserStatus persists a user's presence status and last-seen timestamp.
func (s *Service) SetUserStatus(ctx context.Context, userID string, status models.UserStatus, lastSeen time.Time) error {
	return s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"status": status, "last_seen": lastSeen}).Error
}
