package valueobject

import "github.com/ignatzorin/market-backoffice/internal/pkg/apperror"

// transitions таблица переходов "текущий статус → допустимые следующие".
type transitions[S comparable] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sourcesOf возвращает все статусы, из которых достижим to.
// Используется как условие WHERE status = ANY(...) при условной записи.
func (t transitions[S]) sourcesOf(to S) []S {
	var sources []S
	for from, nexts := range t {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
				break
			}
		}
	}
	return sources
}

// ---- Споры ----

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

var disputeTransitions = transitions[DisputeStatus]{
	DisputeStatusOpen:        {DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusUnderReview: {DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusResolved:    {},
	DisputeStatusClosed:      {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusClosed
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	return disputeTransitions.allows(s, next)
}

// DisputeSourcesOf возвращает статусы спора, из которых разрешён переход в to.
func DisputeSourcesOf(to DisputeStatus) []DisputeStatus {
	return disputeTransitions.sourcesOf(to)
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "некорректный статус спора %q", status)
	}
	return s, nil
}

type DisputePriority string

const (
	DisputePriorityLow    DisputePriority = "low"
	DisputePriorityMedium DisputePriority = "medium"
	DisputePriorityHigh   DisputePriority = "high"
	DisputePriorityUrgent DisputePriority = "urgent"
)

func (p DisputePriority) IsValid() bool {
	switch p {
	case DisputePriorityLow, DisputePriorityMedium, DisputePriorityHigh, DisputePriorityUrgent:
		return true
	}
	return false
}

// AllowedFor проверяет приоритет с учётом стороны: urgent есть только у споров продавцов.
func (p DisputePriority) AllowedFor(raisedBy DisputeParty) bool {
	if !p.IsValid() {
		return false
	}
	return p != DisputePriorityUrgent || raisedBy == DisputePartySeller
}

type DisputeParty string

const (
	DisputePartyBuyer  DisputeParty = "buyer"
	DisputePartySeller DisputeParty = "seller"
)

type RemedyAction string

const (
	RemedyRefundBuyer     RemedyAction = "refund_buyer"
	RemedyReleaseToSeller RemedyAction = "release_to_seller"
	RemedyPartialRefund   RemedyAction = "partial_refund"
	RemedyCancelled       RemedyAction = "cancelled"
	RemedyNoAction        RemedyAction = "no_action"
)

func (a RemedyAction) IsValid() bool {
	switch a {
	case RemedyRefundBuyer, RemedyReleaseToSeller, RemedyPartialRefund, RemedyCancelled, RemedyNoAction:
		return true
	}
	return false
}

// ---- Выводы средств ----

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusOnHold     WithdrawalStatus = "on_hold"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

var withdrawalTransitions = transitions[WithdrawalStatus]{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusOnHold, WithdrawalStatusRejected},
	WithdrawalStatusOnHold:     {WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusRejected},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusFailed},
	WithdrawalStatusCompleted:  {},
	WithdrawalStatusRejected:   {},
	WithdrawalStatusFailed:     {},
}

func (s WithdrawalStatus) IsValid() bool {
	_, ok := withdrawalTransitions[s]
	return ok
}

func (s WithdrawalStatus) IsTerminal() bool {
	return s.IsValid() && len(withdrawalTransitions[s]) == 0
}

func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	return withdrawalTransitions.allows(s, next)
}

func WithdrawalSourcesOf(to WithdrawalStatus) []WithdrawalStatus {
	return withdrawalTransitions.sourcesOf(to)
}

// ---- Заказы ----

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var orderTransitions = transitions[OrderStatus]{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPaid:      {OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusDelivered: {OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusCompleted: {OrderStatusRefunded},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return orderTransitions.allows(s, next)
}

// AwaitingDelivery деньги ещё в escrow, а покупатель товар не получил.
func (s OrderStatus) AwaitingDelivery() bool {
	return s == OrderStatusPending || s == OrderStatusPaid
}

func OrderSourcesOf(to OrderStatus) []OrderStatus {
	return orderTransitions.sourcesOf(to)
}

// ---- Модерация товаров ----

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

var approvalTransitions = transitions[ApprovalStatus]{
	ApprovalStatusPending:  {ApprovalStatusApproved, ApprovalStatusRejected},
	ApprovalStatusApproved: {},
	ApprovalStatusRejected: {},
}

func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	return approvalTransitions.allows(s, next)
}

type AppealStatus string

const (
	AppealStatusPending  AppealStatus = "pending"
	AppealStatusAccepted AppealStatus = "accepted"
	AppealStatusRejected AppealStatus = "rejected"
)
