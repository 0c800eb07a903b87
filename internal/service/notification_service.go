package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/goroutine"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository"
)

// Mailer канал доставки уведомлений по email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotificationService сохраняет уведомления покупателям и продавцам и дублирует их письмом.
// Websocket-хаб обслуживает только консоли администраторов, поэтому сюда он не подключается.
type NotificationService struct {
	repo   NotificationRepository
	users  UserRepository
	mailer Mailer
	async  func(ctx context.Context, fn func(ctx context.Context))
}

// NewNotificationService создаёт сервис уведомлений; mailer может быть nil.
func NewNotificationService(repo NotificationRepository, users UserRepository, mailer Mailer) *NotificationService {
	return &NotificationService{
		repo:   repo,
		users:  users,
		mailer: mailer,
		async:  goroutine.SafeGoWithContext,
	}
}

// Notify сохраняет уведомление и в фоне отправляет письмо.
// Ошибка доставки письма только логируется.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error {
	if userID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "не указан получатель уведомления")
	}

	n := &models.Notification{UserID: userID, Kind: kind, Title: title, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if s.mailer == nil || s.users == nil {
		return nil
	}

	s.async(ctx, func(ctx context.Context) {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				logger.Log.WithError(err).WithField("user_id", userID).Warn("notification: user lookup failed")
			}
			return
		}
		if strings.TrimSpace(user.Email) == "" {
			return
		}
		if err := s.mailer.Send(ctx, user.Email, title, message); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": userID,
				"kind":    kind,
			}).WithError(err).Warn("notification: email delivery failed")
		}
	})
	return nil
}
