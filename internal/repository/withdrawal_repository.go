package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

const withdrawalColumns = `id, seller_id, amount, status, bank_name, bank_code, account_number, account_name,
	connected_account, admin_notes, rejection_reason, failure_reason, hold_reason, transfer_reference,
	processed_by, requested_at, processed_at, rejected_at, updated_at`

type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create вставляет заявку в статусе pending. Списание баланса выполняет вызывающий в той же транзакции.
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	err := common.Executor(ctx, r.db).GetContext(ctx, w, `
		INSERT INTO withdrawals (seller_id, amount, status, bank_name, bank_code, account_number, account_name, connected_account)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
		RETURNING `+withdrawalColumns,
		w.SellerID, w.Amount, w.BankName, w.BankCode, w.AccountNumber, w.AccountName, w.ConnectedAccount)
	if err != nil {
		return fmt.Errorf("withdrawal repository: create: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := common.GetByID[models.Withdrawal](ctx, common.Executor(ctx, r.db),
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id, ErrWithdrawalNotFound)
	if err != nil && !errors.Is(err, ErrWithdrawalNotFound) {
		return nil, fmt.Errorf("withdrawal repository: get: %w", err)
	}
	return w, err
}

func (r *WithdrawalRepository) List(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error) {
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

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := common.Page(f.Limit, f.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var withdrawals []models.Withdrawal
	if err := common.Executor(ctx, r.db).SelectContext(ctx, &withdrawals, query, args...); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list: %w", err)
	}
	return withdrawals, nil
}

// Transition меняет статус, если текущий входит в from, и применяет непустые поля patch.
func (r *WithdrawalRepository) Transition(ctx context.Context, id uuid.UUID, from []valueobject.WithdrawalStatus, to valueobject.WithdrawalStatus, patch models.WithdrawalPatch) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE withdrawals SET
			status             = $2,
			admin_notes        = COALESCE($4, admin_notes),
			rejection_reason   = COALESCE($5, rejection_reason),
			failure_reason     = COALESCE($6, failure_reason),
			hold_reason        = COALESCE($7, hold_reason),
			transfer_reference = COALESCE($8, transfer_reference),
			processed_by       = COALESCE($9, processed_by),
			processed_at       = COALESCE($10, processed_at),
			rejected_at        = COALESCE($11, rejected_at),
			updated_at         = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(to), pq.Array(common.StatusArgs(from)),
		patch.AdminNotes, patch.RejectionReason, patch.FailureReason, patch.HoldReason,
		patch.TransferReference, patch.ProcessedBy, patch.ProcessedAt, patch.RejectedAt))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("withdrawal repository: transition to %s: %w", to, err)
	}
	return err
}
