package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
)

// Product модерационная запись товара. Одобрение, приостановка и бан
// хранятся независимо друг от друга.
type Product struct {
	ID               uuid.UUID                  `db:"id" json:"id"`
	SellerID         uuid.UUID                  `db:"seller_id" json:"seller_id"`
	Title            string                     `db:"title" json:"title"`
	ApprovalStatus   valueobject.ApprovalStatus `db:"approval_status" json:"approval_status"`
	RejectionReason  *string                    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	AdminSuspended   bool                       `db:"admin_suspended" json:"admin_suspended"`
	SuspensionReason *string                    `db:"suspension_reason" json:"suspension_reason,omitempty"`
	SellerSuspended  bool                       `db:"seller_suspended" json:"seller_suspended"`
	IsBanned         bool                       `db:"is_banned" json:"is_banned"`
	BanReason        *string                    `db:"ban_reason" json:"ban_reason,omitempty"`
	IsAvailable      bool                       `db:"is_available" json:"is_available"`
	Version          int64                      `db:"version" json:"-"`
	ModeratedBy      *uuid.UUID                 `db:"moderated_by" json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time                 `db:"moderated_at" json:"moderated_at,omitempty"`
	CreatedAt        time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                  `db:"updated_at" json:"updated_at"`
}

// Normalize приводит флаги к согласованному виду перед записью:
// бан влечёт приостановку, доступность вычисляется из всех трёх осей.
func (p *Product) Normalize() {
	if p.IsBanned {
		p.AdminSuspended = true
	}
	p.IsAvailable = p.ApprovalStatus == valueobject.ApprovalStatusApproved &&
		!p.AdminSuspended && !p.SellerSuspended && !p.IsBanned
}

// ProductAppeal апелляция продавца на приостановку товара.
type ProductAppeal struct {
	ID         uuid.UUID                `db:"id" json:"id"`
	ProductID  uuid.UUID                `db:"product_id" json:"product_id"`
	SellerID   uuid.UUID                `db:"seller_id" json:"seller_id"`
	Message    string                   `db:"message" json:"message"`
	Status     valueobject.AppealStatus `db:"status" json:"status"`
	AdminNote  *string                  `db:"admin_note" json:"admin_note,omitempty"`
	ReviewedBy *uuid.UUID               `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time               `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time                `db:"created_at" json:"created_at"`
}

// BulkResult итог массовой операции по одному товару.
type BulkResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
}
