package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/transfer"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

var (
	ErrMissingPaymentReference = errors.New("payment: у заказа нет ссылки на платёж")
	ErrMissingDestination      = errors.New("payment: у продавца не подключён счёт для выплат")
)

// StripeGateway выполняет возвраты и выплаты через Stripe.
type StripeGateway struct {
	currency string
}

// NewStripeGateway задаёт глобальный ключ Stripe и валюту выплат.
func NewStripeGateway(secretKey, currency string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{currency: currency}
}

// RefundOrder возвращает покупателю сумму по платежу заказа.
func (g *StripeGateway) RefundOrder(_ context.Context, req models.RefundRequest) (string, error) {
	if req.PaymentReference == "" {
		return "", ErrMissingPaymentReference
	}
	money, err := valueobject.NewMoney(req.Amount, req.Currency)
	if err != nil {
		return "", err
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentReference),
		Amount:        stripe.Int64(money.MinorUnits()),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddMetadata("admin_reason", req.Reason)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":  req.OrderID,
		"refund_id": r.ID,
		"amount":    money.String(),
	}).Info("stripe refund created")
	return r.ID, nil
}

// InitiateTransfer переводит сумму на подключённый счёт продавца.
// Идемпотентность обеспечивается id заявки на вывод.
func (g *StripeGateway) InitiateTransfer(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	if req.Bank.ConnectedAccount == "" {
		return nil, ErrMissingDestination
	}
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	money, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	params := &stripe.TransferParams{
		Amount:        stripe.Int64(money.MinorUnits()),
		Currency:      stripe.String(g.currency),
		Destination:   stripe.String(req.Bank.ConnectedAccount),
		TransferGroup: stripe.String("withdrawal_" + req.WithdrawalID.String()),
	}
	params.AddMetadata("withdrawal_id", req.WithdrawalID.String())
	params.AddMetadata("seller_id", req.SellerID.String())
	params.SetIdempotencyKey("withdrawal-" + req.WithdrawalID.String())

	t, err := transfer.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe transfer: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": req.WithdrawalID,
		"transfer_id":   t.ID,
		"amount":        money.String(),
	}).Info("stripe transfer created")
	return &models.TransferResult{Reference: t.ID}, nil
}
