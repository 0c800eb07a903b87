package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

// Сущности для журнала и событий консоли
const (
	EntityDispute    = "dispute"
	EntityWithdrawal = "withdrawal"
	EntityOrder      = "order"
	EntityProduct    = "product"
	EntityAppeal     = "product_appeal"
)

// EventEntityUpdated событие для обновления списков в админ-консоли.
const EventEntityUpdated = "entity_updated"

// WorkflowDeps общие зависимости сервисов, меняющих состояние.
type WorkflowDeps struct {
	Tx       Transactor
	Audit    AuditRepository
	Notifier Notifier
	Events   Broadcaster
	Now      Clock
}

func (d WorkflowDeps) withDefaults() WorkflowDeps {
	if d.Events == nil {
		d.Events = noopBroadcaster{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// audit пишет запись журнала в текущей транзакции.
func (d WorkflowDeps) audit(ctx context.Context, actor *models.Admin, action, entity string, id uuid.UUID, details map[string]interface{}) error {
	if d.Audit == nil {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return d.Audit.Record(ctx, &models.AuditEntry{
		AdminID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Details:  raw,
	})
}

// notify отправляет уведомление после коммита; ошибка не отменяет переход.
func (d WorkflowDeps) notify(ctx context.Context, userID uuid.UUID, kind, title, message string) {
	if d.Notifier == nil || userID == uuid.Nil {
		return
	}
	if err := d.Notifier.Notify(ctx, userID, kind, title, message); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"kind":    kind,
		}).WithError(err).Warn("notification failed")
	}
}

func (d WorkflowDeps) updated(entity string, id uuid.UUID) {
	d.Events.BroadcastAll(EventEntityUpdated, map[string]string{
		"entity": entity,
		"id":     id.String(),
	})
}

// optional возвращает nil для пустой строки.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
