package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundRequest возврат покупателю части или всей суммы заказа.
type RefundRequest struct {
	OrderID          uuid.UUID
	PaymentReference string
	Amount           decimal.Decimal
	Currency         string
	Reason           string
	// IdempotencyKey защищает от повторного возврата при повторе запроса.
	IdempotencyKey string
}

// TransferRequest выплата продавцу на банковский счёт.
type TransferRequest struct {
	WithdrawalID uuid.UUID
	SellerID     uuid.UUID
	Amount       decimal.Decimal
	Currency     string
	Bank         BankDetails
}

// TransferResult ответ платёжного провайдера на выплату.
type TransferResult struct {
	Reference string
}
