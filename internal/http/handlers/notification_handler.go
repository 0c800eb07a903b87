package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// NotificationReader читает историю уведомлений пользователя.
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
}

// NotificationHandler показывает администратору, что получил покупатель или продавец.
type NotificationHandler struct {
	notifications NotificationReader
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications NotificationReader) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListForUser обрабатывает GET /api/admin/users/:id/notifications.
func (h *NotificationHandler) ListForUser(c *gin.Context) {
	if common.CurrentAdmin(c) == nil {
		common.RespondAppError(c, apperror.ErrUnauthenticated)
		return
	}
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	items, err := h.notifications.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить уведомления"))
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	common.RespondList(c, items, len(items), limit, offset)
}
