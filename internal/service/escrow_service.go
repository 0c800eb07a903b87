package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository"
	"github.com/ignatzorin/market-backoffice/internal/validation"
)

// DefaultAutoRefundWindow срок, после которого недоставленный заказ можно вернуть автоматически.
const DefaultAutoRefundWindow = 6 * 24 * time.Hour

// releasableFrom статусы заказа, из которых можно передать escrow продавцу.
var releasableFrom = append(valueobject.OrderSourcesOf(valueobject.OrderStatusCompleted), valueobject.OrderStatusCompleted)

// EscrowService управляет заказами и удержанными по ним средствами.
type EscrowService struct {
	WorkflowDeps
	orders  OrderRepository
	wallets WalletRepository
	gateway PaymentGateway
	window  time.Duration
}

func NewEscrowService(deps WorkflowDeps, orders OrderRepository, wallets WalletRepository, gateway PaymentGateway, window time.Duration) *EscrowService {
	if window <= 0 {
		window = DefaultAutoRefundWindow
	}
	return &EscrowService{
		WorkflowDeps: deps.withDefaults(),
		orders:       orders,
		wallets:      wallets,
		gateway:      gateway,
		window:       window,
	}
}

// Window возвращает срок автоматического возврата.
func (s *EscrowService) Window() time.Duration {
	return s.window
}

func (s *EscrowService) Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.getOrder(ctx, id)
}

func (s *EscrowService) List(ctx context.Context, actor *models.Admin, f models.OrderFilter) ([]models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, f)
}

// ReleaseEscrow передаёт удержанную сумму продавцу: флаг escrow, статус
// заказа и начисление в кошелёк записываются одной транзакцией.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, actor *models.Admin, orderID uuid.UUID) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkReleasable(order); err != nil {
		return nil, err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.releaseInTx(ctx, order, decimal.Zero); err != nil {
			return err
		}
		return s.audit(ctx, actor, "order.release_escrow", EntityOrder, order.ID, map[string]interface{}{
			"amount": order.EscrowAmount.String(),
			"from":   order.Status,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"admin_id":  actor.ID,
		"seller_id": order.SellerID,
		"amount":    order.EscrowAmount.String(),
	}).Info("escrow released")

	s.notify(ctx, order.SellerID, models.NotificationEscrowReleased, "Средства зачислены",
		fmt.Sprintf("По заказу %s на ваш баланс зачислено %s %s", order.ID, order.EscrowAmount.StringFixed(2), order.Currency))
	s.updated(EntityOrder, order.ID)

	return s.getOrder(ctx, orderID)
}

// Refund возвращает покупателю невозвращённую часть суммы заказа.
func (s *EscrowService) Refund(ctx context.Context, actor *models.Admin, orderID uuid.UUID, reason string) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason, err := validation.Reason("укажите причину возврата", reason)
	if err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(valueobject.OrderStatusRefunded) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "заказ в статусе %s нельзя вернуть", order.Status)
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.refundInTx(ctx, order, reason); err != nil {
			return err
		}
		return s.audit(ctx, actor, "order.refund", EntityOrder, order.ID, map[string]interface{}{
			"reason":          reason,
			"from":            order.Status,
			"escrow_released": order.EscrowReleased,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": actor.ID,
		"from":     order.Status,
	}).Info("order refunded")

	msg := fmt.Sprintf("Заказ %s возвращён покупателю: %s", order.ID, reason)
	s.notify(ctx, order.BuyerID, models.NotificationOrderRefunded, "Возврат по заказу", msg)
	s.notify(ctx, order.SellerID, models.NotificationOrderRefunded, "Возврат по заказу", msg)
	s.updated(EntityOrder, order.ID)

	return s.getOrder(ctx, orderID)
}

// Cancel отменяет заказ, который ещё не доставлен.
func (s *EscrowService) Cancel(ctx context.Context, actor *models.Admin, orderID uuid.UUID, reason string) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason, err := validation.Reason("укажите причину отмены", reason)
	if err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.cancelInTx(ctx, order, reason); err != nil {
			return err
		}
		return s.audit(ctx, actor, "order.cancel", EntityOrder, order.ID, map[string]interface{}{
			"reason": reason,
			"from":   order.Status,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": actor.ID,
		"from":     order.Status,
	}).Info("order cancelled")

	msg := fmt.Sprintf("Заказ %s отменён: %s", order.ID, reason)
	s.notify(ctx, order.BuyerID, models.NotificationOrderCancelled, "Заказ отменён", msg)
	s.notify(ctx, order.SellerID, models.NotificationOrderCancelled, "Заказ отменён", msg)
	s.updated(EntityOrder, order.ID)

	return s.getOrder(ctx, orderID)
}

// AutoRefundEligibility проверяет заказ на автоматический возврат на текущий момент.
func (s *EscrowService) AutoRefundEligibility(ctx context.Context, actor *models.Admin, orderID uuid.UUID) (models.AutoRefundEligibility, error) {
	if err := requireActor(actor); err != nil {
		return models.AutoRefundEligibility{}, err
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return models.AutoRefundEligibility{}, err
	}
	return EvaluateAutoRefund(order, s.Now(), s.window), nil
}

// ListAutoRefundCandidates возвращает заказы, для которых срок автоматического возврата истёк к now.
func (s *EscrowService) ListAutoRefundCandidates(ctx context.Context, actor *models.Admin, now time.Time, limit int) ([]models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListAutoRefundCandidates(ctx, now.Add(-s.window), limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Order, 0, len(orders))
	for i := range orders {
		if EvaluateAutoRefund(&orders[i], now, s.window).Eligible {
			candidates = append(candidates, orders[i])
		}
	}
	return candidates, nil
}

// EvaluateAutoRefund чистая проверка: средства удерживаются, заказ не доставлен
// и с момента удержания прошло не меньше window.
func EvaluateAutoRefund(order *models.Order, now time.Time, window time.Duration) models.AutoRefundEligibility {
	res := models.AutoRefundEligibility{OrderID: order.ID}

	switch {
	case !order.EscrowHeld():
		res.Reason = "средства по заказу не удерживаются"
		return res
	case !order.Status.AwaitingDelivery():
		res.Reason = "заказ уже доставлен или закрыт"
		return res
	case order.EscrowHeldAt == nil:
		res.Reason = "не известна дата удержания средств"
		return res
	}

	eligibleAt := order.EscrowHeldAt.Add(window)
	res.EligibleAt = &eligibleAt
	if !now.Before(eligibleAt) {
		res.Eligible = true
		return res
	}

	res.Remaining = eligibleAt.Sub(now)
	res.RemainingSeconds = int64(res.Remaining / time.Second)
	res.Reason = "срок автоматического возврата ещё не наступил"
	return res
}

// checkReleasable проверяет предусловия передачи escrow до открытия транзакции.
func checkReleasable(order *models.Order) error {
	switch {
	case order.EscrowReleased:
		return apperror.New(apperror.ErrCodeInvalidTransition, "средства по заказу уже переданы продавцу")
	case !order.EscrowAmount.IsPositive():
		return apperror.New(apperror.ErrCodeInvalidTransition, "по заказу нет удерживаемых средств")
	}
	for _, st := range releasableFrom {
		if order.Status == st {
			return nil
		}
	}
	return apperror.Newf(apperror.ErrCodeInvalidTransition, "из статуса %s нельзя передать средства продавцу", order.Status)
}

// releaseInTx переворачивает флаг escrow и начисляет продавцу escrow за вычетом refunded.
func (s *EscrowService) releaseInTx(ctx context.Context, order *models.Order, refunded decimal.Decimal) error {
	if err := s.orders.ReleaseEscrow(ctx, order.ID, releasableFrom, refunded, s.Now()); err != nil {
		return err
	}

	credit := order.EscrowAmount.Sub(refunded)
	if !credit.IsPositive() {
		return nil
	}
	entry := &models.WalletTransaction{
		SellerID:    order.SellerID,
		Type:        models.WalletTxEscrowRelease,
		Amount:      credit,
		OrderID:     &order.ID,
		Description: fmt.Sprintf("Передача средств по заказу %s", order.ID),
	}
	if refunded.IsPositive() {
		entry.Type = models.WalletTxPartialRelease
		entry.Description = fmt.Sprintf("Частичная передача средств по заказу %s", order.ID)
	}
	return s.wallets.Apply(ctx, entry)
}

// refundInTx переводит заказ в refunded и возвращает покупателю остаток суммы.
// Вызов провайдера идёт последним, чтобы его ошибка откатила запись статуса.
func (s *EscrowService) refundInTx(ctx context.Context, order *models.Order, reason string) error {
	amount := order.TotalAmount.Sub(order.RefundedAmount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	err := s.orders.TransitionStatus(ctx, order.ID,
		valueobject.OrderSourcesOf(valueobject.OrderStatusRefunded), valueobject.OrderStatusRefunded,
		models.OrderPatch{RefundReason: &reason, RefundedAmount: amount})
	if err != nil {
		return err
	}
	if order.EscrowReleased && amount.IsPositive() {
		// кредит продавцу не списывается, возврат оплачивает платформа
		logger.Log.WithFields(logrus.Fields{
			"order_id":  order.ID,
			"seller_id": order.SellerID,
			"amount":    amount.String(),
		}).Warn("refund after escrow release: seller keeps the wallet credit")
	}
	return s.refundPayment(ctx, order, amount, reason, "order-refund-"+order.ID.String())
}

func (s *EscrowService) cancelInTx(ctx context.Context, order *models.Order, reason string) error {
	if !order.Status.CanTransitionTo(valueobject.OrderStatusCancelled) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "заказ в статусе %s нельзя отменить", order.Status)
	}
	return s.orders.TransitionStatus(ctx, order.ID,
		valueobject.OrderSourcesOf(valueobject.OrderStatusCancelled), valueobject.OrderStatusCancelled,
		models.OrderPatch{CancelReason: &reason})
}

func (s *EscrowService) refundPayment(ctx context.Context, order *models.Order, amount decimal.Decimal, reason, key string) error {
	if !amount.IsPositive() {
		return nil
	}
	var ref string
	if order.PaymentReference != nil {
		ref = *order.PaymentReference
	}
	refundID, err := s.gateway.RefundOrder(ctx, models.RefundRequest{
		OrderID:          order.ID,
		PaymentReference: ref,
		Amount:           amount,
		Currency:         order.Currency,
		Reason:           reason,
		IdempotencyKey:   key,
	})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDownstream, "платёжный провайдер не выполнил возврат")
	}
	logger.Log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"refund_id": refundID,
		"amount":    amount.String(),
	}).Info("payment refunded")
	return nil
}

func (s *EscrowService) getOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrOrderNotFound, "заказ не найден")
	}
	return order, nil
}
