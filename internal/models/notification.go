package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Виды уведомлений
const (
	NotificationDisputeResolved   = "dispute_resolved"
	NotificationOrderCancelled    = "order_cancelled"
	NotificationOrderRefunded     = "order_refunded"
	NotificationEscrowReleased    = "escrow_released"
	NotificationWithdrawalUpdated = "withdrawal_updated"
	NotificationProductModerated  = "product_moderated"
	NotificationAppealResolved    = "appeal_resolved"
)

type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Kind      string     `db:"kind" json:"kind"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// AuditEntry запись журнала действий администраторов.
type AuditEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	AdminID   uuid.UUID       `db:"admin_id" json:"admin_id"`
	Action    string          `db:"action" json:"action"`
	Entity    string          `db:"entity" json:"entity"`
	EntityID  uuid.UUID       `db:"entity_id" json:"entity_id"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
