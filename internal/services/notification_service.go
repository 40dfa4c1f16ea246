package services

import (
	"fmt"

	"gorm.io/gorm"
	gomail "gopkg.in/gomail.v2"

	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/logger"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// Notifier delivers per-user notifications after a transition commits.
// Calls are fire-and-forget: delivery failures are logged and never roll
// back or fail the transition that triggered them.
type Notifier interface {
	Notify(userID string, ntype models.NotificationType, title, message string, slotID *string)
}

type NotificationService interface {
	Notifier
	GetUserNotifications(userID string, limit int) ([]models.Notification, error)
	CountUnread(userID string) (int64, error)
	MarkRead(id, userID string) error
}

type notificationService struct {
	db               *gorm.DB
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	email            config.Config
}

func NewNotificationService(
	db *gorm.DB,
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	cfg *config.Config,
) NotificationService {
	return &notificationService{
		db:               db,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		email:            *cfg,
	}
}

func (s *notificationService) Notify(userID string, ntype models.NotificationType, title, message string, slotID *string) {
	go s.deliver(userID, ntype, title, message, slotID)
}

func (s *notificationService) deliver(userID string, ntype models.NotificationType, title, message string, slotID *string) {
	n := &models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		SlotID:  slotID,
	}
	if err := s.notificationRepo.Create(s.db, n); err != nil {
		logger.Error("failed to persist notification", "error", err, "user_id", userID, "type", ntype)
		return
	}

	if !s.email.Email.Enabled {
		return
	}
	user, err := s.userRepo.FindByID(s.db, userID)
	if err != nil {
		logger.Error("notification email lookup failed", "error", err, "user_id", userID)
		return
	}
	if err := s.sendEmail(user.Email, title, message); err != nil {
		logger.Error("notification email send failed", "error", err, "user_id", userID)
	}
}

func (s *notificationService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.email.Email.FromEmail, s.email.Email.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(
		s.email.Email.SMTPHost,
		s.email.Email.SMTPPort,
		s.email.Email.SMTPUsername,
		s.email.Email.SMTPPassword,
	)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *notificationService) GetUserNotifications(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.FindByUser(s.db, userID, limit)
}

func (s *notificationService) CountUnread(userID string) (int64, error) {
	return s.notificationRepo.CountUnread(s.db, userID)
}

func (s *notificationService) MarkRead(id, userID string) error {
	return s.notificationRepo.MarkRead(s.db, id, userID)
}
