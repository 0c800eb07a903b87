package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDisputeStatus_Transitions(t *testing.T) {
	assert.True(t, DisputeStatusOpen.CanTransitionTo(DisputeStatusUnderReview))
	assert.True(t, DisputeStatusOpen.CanTransitionTo(DisputeStatusClosed))
	assert.True(t, DisputeStatusUnderReview.CanTransitionTo(DisputeStatusResolved))
	assert.False(t, DisputeStatusUnderReview.CanTransitionTo(DisputeStatusOpen))

	for _, terminal := range []DisputeStatus{DisputeStatusResolved, DisputeStatusClosed} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range []DisputeStatus{DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusClosed} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestDisputeSourcesOf(t *testing.T) {
	assert.ElementsMatch(t,
		[]DisputeStatus{DisputeStatusOpen, DisputeStatusUnderReview},
		DisputeSourcesOf(DisputeStatusResolved))
	assert.ElementsMatch(t, []DisputeStatus{DisputeStatusOpen}, DisputeSourcesOf(DisputeStatusUnderReview))
	assert.Empty(t, DisputeSourcesOf(DisputeStatusOpen))
}

func TestNewDisputeStatus(t *testing.T) {
	s, err := NewDisputeStatus("under_review")
	assert.NoError(t, err)
	assert.Equal(t, DisputeStatusUnderReview, s)

	_, err = NewDisputeStatus("escalated")
	assert.Error(t, err)
}

func TestDisputePriority_AllowedFor(t *testing.T) {
	assert.True(t, DisputePriorityHigh.AllowedFor(DisputePartyBuyer))
	assert.True(t, DisputePriorityUrgent.AllowedFor(DisputePartySeller))
	assert.False(t, DisputePriorityUrgent.AllowedFor(DisputePartyBuyer))
	assert.False(t, DisputePriority("critical").AllowedFor(DisputePartySeller))
}

func TestWithdrawalStatus_Transitions(t *testing.T) {
	assert.True(t, WithdrawalStatusPending.CanTransitionTo(WithdrawalStatusOnHold))
	assert.True(t, WithdrawalStatusOnHold.CanTransitionTo(WithdrawalStatusPending))
	assert.True(t, WithdrawalStatusProcessing.CanTransitionTo(WithdrawalStatusFailed))
	assert.False(t, WithdrawalStatusProcessing.CanTransitionTo(WithdrawalStatusRejected))
	assert.False(t, WithdrawalStatusRejected.CanTransitionTo(WithdrawalStatusPending))

	assert.True(t, WithdrawalStatusCompleted.IsTerminal())
	assert.True(t, WithdrawalStatusFailed.IsTerminal())
	assert.False(t, WithdrawalStatusOnHold.IsTerminal())

	assert.ElementsMatch(t,
		[]WithdrawalStatus{WithdrawalStatusPending, WithdrawalStatusOnHold},
		WithdrawalSourcesOf(WithdrawalStatusRejected))
}

func TestOrderStatus_Transitions(t *testing.T) {
	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPending, OrderStatusPaid},
		OrderSourcesOf(OrderStatusCancelled))
	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCompleted},
		OrderSourcesOf(OrderStatusRefunded))
	assert.False(t, OrderStatusRefunded.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, OrderStatusPaid.AwaitingDelivery())
	assert.False(t, OrderStatusDelivered.AwaitingDelivery())
}

func TestMoney_MinorUnits(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("1000.505"), "ngn")
	assert.NoError(t, err)
	assert.Equal(t, int64(100051), m.MinorUnits())
	assert.Equal(t, "NGN", m.Currency)

	_, err = NewMoney(decimal.NewFromInt(-1), "")
	assert.Error(t, err)
}
