package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы записей журнала кошелька
const (
	WalletTxEscrowRelease      = "escrow_release"
	WalletTxPartialRelease     = "partial_release"
	WalletTxWithdrawalDebit    = "withdrawal_debit"
	WalletTxWithdrawalReversal = "withdrawal_reversal"
)

// SellerWallet баланс продавца.
type SellerWallet struct {
	SellerID  uuid.UUID       `db:"seller_id" json:"seller_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// WalletTransaction запись журнала изменения баланса. Amount со знаком.
type WalletTransaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	SellerID     uuid.UUID       `db:"seller_id" json:"seller_id"`
	Type         string          `db:"type" json:"type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	OrderID      *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	WithdrawalID *uuid.UUID      `db:"withdrawal_id" json:"withdrawal_id,omitempty"`
	Description  string          `db:"description" json:"description"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
