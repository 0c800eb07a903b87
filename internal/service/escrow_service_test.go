package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

func TestEscrowService_ReleaseCreditsExactAmount(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusDelivered, "1000")

	got, err := env.escrow.ReleaseEscrow(context.Background(), admin, order.ID)
	require.NoError(t, err)

	assert.True(t, got.EscrowReleased)
	assert.Equal(t, valueobject.OrderStatusCompleted, got.Status)
	assert.True(t, decimal.NewFromInt(1000).Equal(env.store.balance(order.SellerID)))

	ledger := env.store.ledgerFor(order.SellerID)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.WalletTxEscrowRelease, ledger[0].Type)
	assert.Equal(t, order.ID, *ledger[0].OrderID)
	assert.Equal(t, []uuid.UUID{order.SellerID}, env.notifier.recipients())
}

func TestEscrowService_DoubleReleaseCreditsOnce(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusPaid, "1000")

	_, err := env.escrow.ReleaseEscrow(context.Background(), admin, order.ID)
	require.NoError(t, err)

	_, err = env.escrow.ReleaseEscrow(context.Background(), admin, order.ID)
	assert.True(t, apperror.IsInvalidTransition(err), "got %v", err)
	assert.Len(t, env.store.ledgerFor(order.SellerID), 1)
	assert.True(t, decimal.NewFromInt(1000).Equal(env.store.balance(order.SellerID)))
}

func TestEscrowService_ConcurrentReleaseCreditsOnce(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusDelivered, "250.50")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.escrow.ReleaseEscrow(context.Background(), admin, order.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, apperror.IsConflict(err) || apperror.IsInvalidTransition(err), "got %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, env.store.ledgerFor(order.SellerID), 1)
	assert.True(t, decimal.RequireFromString("250.50").Equal(env.store.balance(order.SellerID)))
}

func TestEscrowService_ReleasePreconditions(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)

	refunded := env.addOrder(valueobject.OrderStatusRefunded, "100")
	_, err := env.escrow.ReleaseEscrow(context.Background(), admin, refunded.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	empty := env.addOrder(valueobject.OrderStatusDelivered, "0")
	_, err = env.escrow.ReleaseEscrow(context.Background(), admin, empty.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = env.escrow.ReleaseEscrow(context.Background(), nil, refunded.ID)
	assert.Equal(t, apperror.ErrCodeUnauthenticated, apperror.CodeOf(err))
}

func TestEscrowService_RefundCallsGatewayWithRemainder(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusPaid, "500")

	env.gateway.On("RefundOrder", mock.Anything, mock.MatchedBy(func(req models.RefundRequest) bool {
		return req.OrderID == order.ID &&
			req.Amount.Equal(decimal.NewFromInt(500)) &&
			req.PaymentReference == *order.PaymentReference &&
			req.IdempotencyKey == "order-refund-"+order.ID.String()
	})).Return("re_1", nil).Once()

	got, err := env.escrow.Refund(context.Background(), admin, order.ID, "товар не отправлен")
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusRefunded, got.Status)
	assert.True(t, decimal.NewFromInt(500).Equal(got.RefundedAmount))
	assert.ElementsMatch(t, []uuid.UUID{order.BuyerID, order.SellerID}, env.notifier.recipients())
	env.gateway.AssertExpectations(t)
}

func TestEscrowService_RefundGatewayFailureRollsBack(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusPaid, "500")

	env.gateway.On("RefundOrder", mock.Anything, mock.Anything).Return("", errors.New("card_declined")).Once()

	_, err := env.escrow.Refund(context.Background(), admin, order.ID, "товар не отправлен")
	assert.True(t, apperror.IsDownstream(err), "got %v", err)

	stored := env.order(order.ID)
	assert.Equal(t, valueobject.OrderStatusPaid, stored.Status)
	assert.True(t, stored.RefundedAmount.IsZero())
	assert.Empty(t, env.notifier.recipients())
}

func TestEscrowService_RefundValidation(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusCancelled, "500")

	_, err := env.escrow.Refund(context.Background(), admin, order.ID, "  ")
	assert.True(t, apperror.IsValidation(err))

	_, err = env.escrow.Refund(context.Background(), admin, order.ID, "повтор")
	assert.True(t, apperror.IsInvalidTransition(err))
	env.gateway.AssertNotCalled(t, "RefundOrder", mock.Anything, mock.Anything)
}

func TestEscrowService_Cancel(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)

	pending := env.addOrder(valueobject.OrderStatusPending, "300")
	got, err := env.escrow.Cancel(context.Background(), admin, pending.ID, "покупатель передумал")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, "покупатель передумал", *got.CancelReason)
	assert.Len(t, env.notifier.recipients(), 2)

	delivered := env.addOrder(valueobject.OrderStatusDelivered, "300")
	_, err = env.escrow.Cancel(context.Background(), admin, delivered.ID, "поздно")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestEvaluateAutoRefund(t *testing.T) {
	window := 6 * 24 * time.Hour
	held := fixedNow.Add(-7 * 24 * time.Hour)

	eligible := &models.Order{
		Status:       valueobject.OrderStatusPaid,
		EscrowAmount: decimal.NewFromInt(100),
		EscrowHeldAt: &held,
	}
	res := EvaluateAutoRefund(eligible, fixedNow, window)
	assert.True(t, res.Eligible)
	require.NotNil(t, res.EligibleAt)
	assert.Equal(t, held.Add(window), *res.EligibleAt)
	assert.Zero(t, res.RemainingSeconds)

	recent := fixedNow.Add(-5 * 24 * time.Hour)
	waiting := &models.Order{
		Status:       valueobject.OrderStatusPending,
		EscrowAmount: decimal.NewFromInt(100),
		EscrowHeldAt: &recent,
	}
	res = EvaluateAutoRefund(waiting, fixedNow, window)
	assert.False(t, res.Eligible)
	assert.Equal(t, 24*time.Hour, res.Remaining)
	assert.Equal(t, int64(86400), res.RemainingSeconds)

	delivered := *eligible
	delivered.Status = valueobject.OrderStatusDelivered
	assert.False(t, EvaluateAutoRefund(&delivered, fixedNow, window).Eligible)

	released := *eligible
	released.EscrowReleased = true
	assert.False(t, EvaluateAutoRefund(&released, fixedNow, window).Eligible)

	boundary := fixedNow.Add(-window)
	exact := *eligible
	exact.EscrowHeldAt = &boundary
	assert.True(t, EvaluateAutoRefund(&exact, fixedNow, window).Eligible)
}

func TestEscrowService_ListAutoRefundCandidates(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)

	old := env.addOrder(valueobject.OrderStatusPaid, "100")
	stale := fixedNow.Add(-10 * 24 * time.Hour)
	o := env.order(old.ID)
	o.EscrowHeldAt = &stale
	env.store.orders[old.ID] = o

	env.addOrder(valueobject.OrderStatusPaid, "100")

	got, err := env.escrow.ListAutoRefundCandidates(context.Background(), admin, fixedNow, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)
}

func TestEscrowService_RefundAfterReleaseIsFlagged(t *testing.T) {
	previous := logger.Log.ReplaceHooks(make(logrus.LevelHooks))
	defer logger.Log.ReplaceHooks(previous)
	hook := test.NewLocal(logger.Log)

	env := newTestEnv()
	admin := env.addAdmin(models.AdminRoleAdmin)
	order := env.addOrder(valueobject.OrderStatusDelivered, "800")
	ctx := context.Background()

	_, err := env.escrow.ReleaseEscrow(ctx, admin, order.ID)
	require.NoError(t, err)

	env.gateway.On("RefundOrder", mock.Anything, mock.Anything).Return("re_late", nil).Once()
	_, err = env.escrow.Refund(ctx, admin, order.ID, "товар оказался подделкой")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(800).Equal(env.store.balance(order.SellerID)))

	require.NotEmpty(t, env.store.audit)
	last := env.store.audit[len(env.store.audit)-1]
	assert.Equal(t, "order.refund", last.Action)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(last.Details, &details))
	assert.Equal(t, true, details["escrow_released"])

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["order_id"] == order.ID {
			warned = true
		}
	}
	assert.True(t, warned, "refund after release must be logged")
}
