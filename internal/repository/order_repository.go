package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `id, buyer_id, seller_id, product_id, status, currency, total_amount, commission_amount,
	seller_payout_amount, escrow_amount, escrow_released, escrow_held_at, escrow_released_at, hold_until,
	payment_reference, refund_reason, refunded_amount, cancel_reason, delivered_at, created_at, updated_at`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := common.GetByID[models.Order](ctx, common.Executor(ctx, r.db),
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id, ErrOrderNotFound)
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return nil, fmt.Errorf("order repository: get: %w", err)
	}
	return o, err
}

func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SellerID != nil {
		args = append(args, *f.SellerID)
		where = append(where, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if f.BuyerID != nil {
		args = append(args, *f.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := common.Page(f.Limit, f.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var orders []models.Order
	if err := common.Executor(ctx, r.db).SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}
	return orders, nil
}

// TransitionStatus меняет статус заказа условной записью.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []valueobject.OrderStatus, to valueobject.OrderStatus, patch models.OrderPatch) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET
			status          = $2,
			refund_reason   = COALESCE($4, refund_reason),
			refunded_amount = refunded_amount + $5,
			cancel_reason   = COALESCE($6, cancel_reason),
			updated_at      = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(to), pq.Array(common.StatusArgs(from)), patch.RefundReason, patch.RefundedAmount, patch.CancelReason))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("order repository: transition to %s: %w", to, err)
	}
	return err
}

// ReleaseEscrow переворачивает escrow_released false→true и завершает заказ.
// Параметр refunded: часть суммы, уже возвращённая покупателю при частичном возврате.
func (r *OrderRepository) ReleaseEscrow(ctx context.Context, id uuid.UUID, from []valueobject.OrderStatus, refunded decimal.Decimal, at time.Time) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET
			escrow_released    = TRUE,
			escrow_released_at = $2,
			status             = 'completed',
			refunded_amount    = refunded_amount + $3,
			updated_at         = NOW()
		WHERE id = $1 AND escrow_released = FALSE AND escrow_amount > 0 AND status = ANY($4)
	`, id, at, refunded, pq.Array(common.StatusArgs(from))))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("order repository: release escrow: %w", err)
	}
	return err
}

func (r *OrderRepository) AddNote(ctx context.Context, note *models.OrderNote) error {
	err := common.Executor(ctx, r.db).GetContext(ctx, note, `
		INSERT INTO order_notes (order_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, order_id, author_id, body, created_at
	`, note.OrderID, note.AuthorID, note.Body)
	if err != nil {
		return fmt.Errorf("order repository: add note: %w", err)
	}
	return nil
}

// ListAutoRefundCandidates возвращает заказы с удержанными средствами, не доставленные
// и удерживаемые с момента не позже heldBefore.
func (r *OrderRepository) ListAutoRefundCandidates(ctx context.Context, heldBefore time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	err := common.Executor(ctx, r.db).SelectContext(ctx, &orders, `
		SELECT `+orderColumns+` FROM orders
		WHERE escrow_released = FALSE AND escrow_amount > 0
		  AND status IN ('pending', 'paid')
		  AND escrow_held_at IS NOT NULL AND escrow_held_at <= $1
		ORDER BY escrow_held_at
		LIMIT $2
	`, heldBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("order repository: auto-refund candidates: %w", err)
	}
	return orders, nil
}
