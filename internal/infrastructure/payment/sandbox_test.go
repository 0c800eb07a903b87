package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-backoffice/internal/models"
)

func TestSandboxGateway_TransferIsIdempotent(t *testing.T) {
	g := NewSandboxGateway()
	ctx := context.Background()
	req := models.TransferRequest{
		WithdrawalID: uuid.New(),
		Amount:       decimal.NewFromInt(2000),
		Bank:         models.BankDetails{AccountNumber: "0123456789"},
	}

	first, err := g.InitiateTransfer(ctx, req)
	require.NoError(t, err)
	second, err := g.InitiateTransfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
}

func TestSandboxGateway_DeclinedAccount(t *testing.T) {
	g := NewSandboxGateway()
	_, err := g.InitiateTransfer(context.Background(), models.TransferRequest{
		WithdrawalID: uuid.New(),
		Bank:         models.BankDetails{AccountNumber: "1234560000"},
	})
	assert.ErrorIs(t, err, ErrSandboxDeclined)
}

func TestSandboxGateway_Refund(t *testing.T) {
	g := NewSandboxGateway()
	ctx := context.Background()

	_, err := g.RefundOrder(ctx, models.RefundRequest{OrderID: uuid.New()})
	assert.ErrorIs(t, err, ErrMissingPaymentReference)

	req := models.RefundRequest{OrderID: uuid.New(), PaymentReference: "pi_123", IdempotencyKey: "refund-1"}
	a, err := g.RefundOrder(ctx, req)
	require.NoError(t, err)
	b, err := g.RefundOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
