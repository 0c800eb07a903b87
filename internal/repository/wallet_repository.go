package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

// ErrInsufficientFunds: баланса продавца не хватает для списания.
var ErrInsufficientFunds = common.ErrInsufficientFunds

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Apply изменяет баланс на entry.Amount (со знаком) и пишет запись в журнал.
// Изменение выражено дельтой в SQL; списание условное и не уводит баланс в минус.
// Вызывается внутри транзакции вместе со сменой статуса.
func (r *WalletRepository) Apply(ctx context.Context, entry *models.WalletTransaction) error {
	exec := common.Executor(ctx, r.db)

	switch {
	case entry.Amount.IsPositive():
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO seller_wallets (seller_id, balance) VALUES ($1, $2)
			ON CONFLICT (seller_id) DO UPDATE
			SET balance = seller_wallets.balance + EXCLUDED.balance, updated_at = NOW()
		`, entry.SellerID, entry.Amount); err != nil {
			return fmt.Errorf("wallet repository: credit: %w", err)
		}
	case entry.Amount.IsNegative():
		err := common.ExpectOneRow(exec.ExecContext(ctx, `
			UPDATE seller_wallets SET balance = balance + $2, updated_at = NOW()
			WHERE seller_id = $1 AND balance + $2 >= 0
		`, entry.SellerID, entry.Amount))
		if errors.Is(err, common.ErrStaleState) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("wallet repository: debit: %w", err)
		}
	default:
		return nil
	}

	err := exec.GetContext(ctx, entry, `
		INSERT INTO wallet_transactions (seller_id, type, amount, order_id, withdrawal_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, seller_id, type, amount, order_id, withdrawal_id, description, created_at
	`, entry.SellerID, entry.Type, entry.Amount, entry.OrderID, entry.WithdrawalID, entry.Description)
	if err != nil {
		return fmt.Errorf("wallet repository: ledger entry: %w", err)
	}
	return nil
}
