package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
)

// Dispute спор покупателя или продавца по заказу.
type Dispute struct {
	ID           uuid.UUID                   `db:"id" json:"id"`
	OrderID      uuid.UUID                   `db:"order_id" json:"order_id"`
	RaisedBy     valueobject.DisputeParty    `db:"raised_by" json:"raised_by"`
	RaisedByID   uuid.UUID                   `db:"raised_by_id" json:"raised_by_id"`
	ReasonCode   string                      `db:"reason_code" json:"reason_code"`
	Description  string                      `db:"description" json:"description"`
	Evidence     pq.StringArray              `db:"evidence" json:"evidence"`
	Status       valueobject.DisputeStatus   `db:"status" json:"status"`
	Priority     valueobject.DisputePriority `db:"priority" json:"priority"`
	AssignedTo   *uuid.UUID                  `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedAt   *time.Time                  `db:"assigned_at" json:"assigned_at,omitempty"`
	ResolvedBy   *uuid.UUID                  `db:"resolved_by" json:"resolved_by,omitempty"`
	Resolution   *string                     `db:"resolution" json:"resolution,omitempty"`
	AdminAction  *valueobject.RemedyAction   `db:"admin_action" json:"admin_action,omitempty"`
	AdminNotes   *string                     `db:"admin_notes" json:"admin_notes,omitempty"`
	ResolvedAt   *time.Time                  `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt    time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                   `db:"updated_at" json:"updated_at"`
	Messages     []DisputeMessage            `db:"-" json:"messages,omitempty"`
	EvidenceURLs []string                    `db:"-" json:"evidence_urls,omitempty"`
}

// IsAssignedTo сообщает, закреплён ли спор за указанным администратором.
func (d *Dispute) IsAssignedTo(adminID uuid.UUID) bool {
	return d.AssignedTo != nil && *d.AssignedTo == adminID
}

const (
	MessageAuthorAdmin  = "admin"
	MessageAuthorBuyer  = "buyer"
	MessageAuthorSeller = "seller"
)

// DisputeMessage заметка или сообщение в споре. Только добавляется.
type DisputeMessage struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	DisputeID   uuid.UUID      `db:"dispute_id" json:"dispute_id"`
	AuthorID    uuid.UUID      `db:"author_id" json:"author_id"`
	AuthorRole  string         `db:"author_role" json:"author_role"`
	Body        string         `db:"body" json:"body"`
	IsInternal  bool           `db:"is_internal" json:"is_internal"`
	Attachments pq.StringArray `db:"attachments" json:"attachments"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

type DisputeFilter struct {
	Status     *valueobject.DisputeStatus
	Priority   *valueobject.DisputePriority
	AssignedTo *uuid.UUID
	Unassigned bool
	Limit      int
	Offset     int
}

// DisputeResolution данные, фиксируемые при разрешении спора.
type DisputeResolution struct {
	Action     valueobject.RemedyAction
	Resolution string
	AdminNotes *string
	ResolvedBy uuid.UUID
	ResolvedAt time.Time
}
