package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
)

// BankDetails реквизиты, на которые продавец выводит средства.
type BankDetails struct {
	BankName         string `db:"bank_name" json:"bank_name"`
	BankCode         string `db:"bank_code" json:"bank_code"`
	AccountNumber    string `db:"account_number" json:"account_number"`
	AccountName      string `db:"account_name" json:"account_name"`
	ConnectedAccount string `db:"connected_account" json:"-"`
}

// Withdrawal заявка продавца на вывод баланса кошелька.
type Withdrawal struct {
	ID                uuid.UUID                    `db:"id" json:"id"`
	SellerID          uuid.UUID                    `db:"seller_id" json:"seller_id"`
	Amount            decimal.Decimal              `db:"amount" json:"amount"`
	Status            valueobject.WithdrawalStatus `db:"status" json:"status"`
	BankDetails       `json:"bank_details"`
	AdminNotes        *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	RejectionReason   *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FailureReason     *string    `db:"failure_reason" json:"failure_reason,omitempty"`
	HoldReason        *string    `db:"hold_reason" json:"hold_reason,omitempty"`
	TransferReference *string    `db:"transfer_reference" json:"transfer_reference,omitempty"`
	ProcessedBy       *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
	RequestedAt       time.Time  `db:"requested_at" json:"requested_at"`
	ProcessedAt       *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	RejectedAt        *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

type WithdrawalFilter struct {
	Status   *valueobject.WithdrawalStatus
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}

// WithdrawalPatch поля, которые меняются вместе со статусом. nil означает "не трогать".
type WithdrawalPatch struct {
	AdminNotes        *string
	RejectionReason   *string
	FailureReason     *string
	HoldReason        *string
	TransferReference *string
	ProcessedBy       *uuid.UUID
	ProcessedAt       *time.Time
	RejectedAt        *time.Time
}
