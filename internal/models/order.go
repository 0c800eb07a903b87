package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
)

// Order покупка вместе с удержанием средств (escrow) до подтверждения доставки.
type Order struct {
	ID                 uuid.UUID               `db:"id" json:"id"`
	BuyerID            uuid.UUID               `db:"buyer_id" json:"buyer_id"`
	SellerID           uuid.UUID               `db:"seller_id" json:"seller_id"`
	ProductID          *uuid.UUID              `db:"product_id" json:"product_id,omitempty"`
	Status             valueobject.OrderStatus `db:"status" json:"status"`
	Currency           string                  `db:"currency" json:"currency"`
	TotalAmount        decimal.Decimal         `db:"total_amount" json:"total_amount"`
	CommissionAmount   decimal.Decimal         `db:"commission_amount" json:"commission_amount"`
	SellerPayoutAmount decimal.Decimal         `db:"seller_payout_amount" json:"seller_payout_amount"`
	EscrowAmount       decimal.Decimal         `db:"escrow_amount" json:"escrow_amount"`
	EscrowReleased     bool                    `db:"escrow_released" json:"escrow_released"`
	EscrowHeldAt       *time.Time              `db:"escrow_held_at" json:"escrow_held_at,omitempty"`
	EscrowReleasedAt   *time.Time              `db:"escrow_released_at" json:"escrow_released_at,omitempty"`
	HoldUntil          *time.Time              `db:"hold_until" json:"hold_until,omitempty"`
	PaymentReference   *string                 `db:"payment_reference" json:"-"`
	RefundReason       *string                 `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundedAmount     decimal.Decimal         `db:"refunded_amount" json:"refunded_amount"`
	CancelReason       *string                 `db:"cancel_reason" json:"cancel_reason,omitempty"`
	DeliveredAt        *time.Time              `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt          time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time               `db:"updated_at" json:"updated_at"`
}

// EscrowHeld сообщает, что средства по заказу ещё удерживаются платформой.
func (o *Order) EscrowHeld() bool {
	return o.EscrowAmount.IsPositive() && !o.EscrowReleased &&
		o.Status != valueobject.OrderStatusRefunded && o.Status != valueobject.OrderStatusCancelled
}

// OrderNote служебная заметка к заказу.
type OrderNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type OrderFilter struct {
	Status   *valueobject.OrderStatus
	SellerID *uuid.UUID
	BuyerID  *uuid.UUID
	Limit    int
	Offset   int
}

// AutoRefundEligibility результат проверки заказа на автоматический возврат.
type AutoRefundEligibility struct {
	OrderID          uuid.UUID     `json:"order_id"`
	Eligible         bool          `json:"eligible"`
	EligibleAt       *time.Time    `json:"eligible_at,omitempty"`
	Remaining        time.Duration `json:"-"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	Reason           string        `json:"reason,omitempty"`
}

// OrderPatch поля, которые записываются вместе со сменой статуса заказа.
type OrderPatch struct {
	RefundReason   *string
	RefundedAmount decimal.Decimal
	CancelReason   *string
}
