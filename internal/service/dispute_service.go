package service

import (
	"context"
	"fmt"
	"strings"
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

// EventDisputeAssigned событие для администратора, за которым закрепили спор.
const EventDisputeAssigned = "dispute_assigned"

// disputeEditable статусы, в которых спор ещё можно менять.
var disputeEditable = []valueobject.DisputeStatus{
	valueobject.DisputeStatusOpen,
	valueobject.DisputeStatusUnderReview,
}

// ResolveInput решение администратора по спору.
type ResolveInput struct {
	Action       valueobject.RemedyAction
	Resolution   string
	AdminNotes   string
	RefundAmount *decimal.Decimal
}

// NoteInput заметка администратора в споре.
type NoteInput struct {
	Body        string
	Internal    bool
	Attachments []string
}

type DisputeService struct {
	WorkflowDeps
	disputes DisputeRepository
	orders   OrderRepository
	admins   AdminRepository
	escrow   *EscrowService

	evidence    EvidenceLinker
	evidenceTTL time.Duration
	pusher      UserPusher
}

func NewDisputeService(deps WorkflowDeps, disputes DisputeRepository, orders OrderRepository, admins AdminRepository, escrow *EscrowService) *DisputeService {
	return &DisputeService{
		WorkflowDeps: deps.withDefaults(),
		disputes:     disputes,
		orders:       orders,
		admins:       admins,
		escrow:       escrow,
		evidenceTTL:  15 * time.Minute,
	}
}

// WithEvidence подключает выдачу временных ссылок на доказательства.
func (s *DisputeService) WithEvidence(linker EvidenceLinker, ttl time.Duration) *DisputeService {
	s.evidence = linker
	if ttl > 0 {
		s.evidenceTTL = ttl
	}
	return s
}

// WithPusher включает личные события администратору при назначении спора.
func (s *DisputeService) WithPusher(p UserPusher) *DisputeService {
	s.pusher = p
	return s
}

// Get возвращает спор с перепиской и ссылками на доказательства.
func (s *DisputeService) Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}

	messages, err := s.disputes.ListMessages(ctx, id, true)
	if err != nil {
		return nil, err
	}
	d.Messages = messages
	d.EvidenceURLs = s.evidenceURLs(ctx, d)
	return d, nil
}

func (s *DisputeService) List(ctx context.Context, actor *models.Admin, f models.DisputeFilter) ([]models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if f.Status != nil && !f.Status.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "некорректный статус спора %q", *f.Status)
	}
	if f.Priority != nil && !f.Priority.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "некорректный приоритет %q", *f.Priority)
	}
	return s.disputes.List(ctx, f)
}

// ChangeStatus переводит спор по таблице переходов. В resolved спор попадает только через Resolve.
func (s *DisputeService) ChangeStatus(ctx context.Context, actor *models.Admin, id uuid.UUID, status valueobject.DisputeStatus) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "некорректный статус спора %q", status)
	}
	if status == valueobject.DisputeStatusResolved {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "для решения спора используйте resolve")
	}

	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransitionTo(status) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "переход %s → %s недопустим", d.Status, status)
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.disputes.UpdateStatus(ctx, id, valueobject.DisputeSourcesOf(status), status); err != nil {
			return err
		}
		return s.audit(ctx, actor, "dispute.status", EntityDispute, id, map[string]interface{}{
			"from": d.Status,
			"to":   status,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id": id,
		"admin_id":   actor.ID,
		"from":       d.Status,
		"to":         status,
	}).Info("dispute status changed")
	s.updated(EntityDispute, id)

	return s.getDispute(ctx, id)
}

// ChangePriority меняет приоритет открытого спора.
func (s *DisputeService) ChangePriority(ctx context.Context, actor *models.Admin, id uuid.UUID, priority valueobject.DisputePriority) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !priority.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "некорректный приоритет %q", priority)
	}

	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор закрыт, приоритет менять нельзя")
	}
	if !priority.AllowedFor(d.RaisedBy) {
		return nil, apperror.New(apperror.ErrCodeValidation, "приоритет urgent доступен только для споров продавцов")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.disputes.UpdatePriority(ctx, id, disputeEditable, priority); err != nil {
			return err
		}
		return s.audit(ctx, actor, "dispute.priority", EntityDispute, id, map[string]interface{}{
			"from": d.Priority,
			"to":   priority,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	s.updated(EntityDispute, id)
	return s.getDispute(ctx, id)
}

// Assign закрепляет спор за администратором; nil означает "за собой".
// Чужой спор может перехватить только его текущий исполнитель или super_admin.
func (s *DisputeService) Assign(ctx context.Context, actor *models.Admin, id uuid.UUID, assignee *uuid.UUID) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	target := actor.ID
	if assignee != nil && *assignee != actor.ID {
		a, err := s.admins.GetByID(ctx, *assignee)
		if err != nil {
			return nil, notFound(err, repository.ErrAdminNotFound, "администратор не найден")
		}
		if !a.IsActive {
			return nil, apperror.New(apperror.ErrCodeNotFound, "администратор не найден")
		}
		target = a.ID
	}

	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор закрыт, назначение менять нельзя")
	}
	if d.IsAssignedTo(target) {
		return d, nil
	}
	if d.AssignedTo != nil && !d.IsAssignedTo(actor.ID) && !actor.IsSuperAdmin() {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "спор уже закреплён за другим администратором")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.disputes.Assign(ctx, id, disputeEditable, d.AssignedTo, target, s.Now()); err != nil {
			return err
		}
		return s.audit(ctx, actor, "dispute.assign", EntityDispute, id, map[string]interface{}{
			"from": d.AssignedTo,
			"to":   target,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id": id,
		"admin_id":   actor.ID,
		"assignee":   target,
	}).Info("dispute assigned")

	if s.pusher != nil && target != actor.ID {
		if err := s.pusher.BroadcastToUser(target, EventDisputeAssigned, map[string]string{"id": id.String()}); err != nil {
			logger.Log.WithError(err).WithField("dispute_id", id).Warn("dispute: assignment push failed")
		}
	}
	s.updated(EntityDispute, id)

	return s.getDispute(ctx, id)
}

// Unassign снимает исполнителя со спора.
func (s *DisputeService) Unassign(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор закрыт, назначение менять нельзя")
	}
	if d.AssignedTo == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор ни за кем не закреплён")
	}
	if !d.IsAssignedTo(actor.ID) && !actor.IsSuperAdmin() {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "снять назначение может только исполнитель или super_admin")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.disputes.Unassign(ctx, id, disputeEditable, *d.AssignedTo); err != nil {
			return err
		}
		return s.audit(ctx, actor, "dispute.unassign", EntityDispute, id, map[string]interface{}{
			"from": d.AssignedTo,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	s.updated(EntityDispute, id)
	return s.getDispute(ctx, id)
}

// Resolve выполняет выбранное решение и закрывает спор. Финансовые действия и
// запись статуса идут одной транзакцией: ошибка провайдера оставляет спор открытым.
func (s *DisputeService) Resolve(ctx context.Context, actor *models.Admin, id uuid.UUID, in ResolveInput) (*models.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var (
		from  valueobject.DisputeStatus
		order *models.Order
	)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.disputes.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, repository.ErrDisputeNotFound, "спор не найден")
		}
		if d.Status.IsTerminal() {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "спор уже в статусе %s", d.Status)
		}
		from = d.Status

		order, err = s.orders.GetByID(ctx, d.OrderID)
		if err != nil {
			return notFound(err, repository.ErrOrderNotFound, "заказ по спору не найден")
		}

		if err := s.applyRemedy(ctx, actor, d, order, in); err != nil {
			return err
		}

		err = s.disputes.MarkResolved(ctx, id, valueobject.DisputeSourcesOf(valueobject.DisputeStatusResolved), models.DisputeResolution{
			Action:     in.Action,
			Resolution: in.Resolution,
			AdminNotes: optional(in.AdminNotes),
			ResolvedBy: actor.ID,
			ResolvedAt: s.Now(),
		})
		if err != nil {
			return err
		}

		details := map[string]interface{}{
			"action":   in.Action,
			"from":     from,
			"order_id": order.ID,
		}
		if in.RefundAmount != nil {
			details["refund_amount"] = in.RefundAmount.String()
		}
		if in.Action == valueobject.RemedyRefundBuyer {
			details["escrow_released"] = order.EscrowReleased
		}
		return s.audit(ctx, actor, "dispute.resolve", EntityDispute, id, details)
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id": id,
		"admin_id":   actor.ID,
		"order_id":   order.ID,
		"action":     in.Action,
		"from":       from,
	}).Info("dispute resolved")

	msg := fmt.Sprintf("Спор по заказу %s решён: %s", order.ID, in.Resolution)
	s.notify(ctx, order.BuyerID, models.NotificationDisputeResolved, "Спор решён", msg)
	s.notify(ctx, order.SellerID, models.NotificationDisputeResolved, "Спор решён", msg)
	s.updated(EntityDispute, id)
	if in.Action != valueobject.RemedyNoAction {
		s.updated(EntityOrder, order.ID)
	}

	return s.getDispute(ctx, id)
}

// normalize обрезает тексты и проверяет решение до открытия транзакции.
func (in *ResolveInput) normalize() error {
	if !in.Action.IsValid() {
		return apperror.Newf(apperror.ErrCodeValidation, "неизвестное решение %q", in.Action)
	}
	var err error
	if in.Resolution, err = validation.RequiredText("решение", "укажите текст решения", in.Resolution, validation.MaxResolutionLength); err != nil {
		return err
	}
	if in.AdminNotes, err = validation.OptionalText("заметка", in.AdminNotes, validation.MaxNoteLength); err != nil {
		return err
	}
	if in.Action == valueobject.RemedyPartialRefund {
		if in.RefundAmount == nil {
			return apperror.New(apperror.ErrCodeValidation, "для частичного возврата укажите сумму")
		}
		if err := valueobject.RequirePositive("сумма возврата", *in.RefundAmount); err != nil {
			return err
		}
	}
	return nil
}

// applyRemedy выполняет финансовую часть решения внутри транзакции Resolve.
func (s *DisputeService) applyRemedy(ctx context.Context, actor *models.Admin, d *models.Dispute, order *models.Order, in ResolveInput) error {
	switch in.Action {
	case valueobject.RemedyRefundBuyer:
		if !order.Status.CanTransitionTo(valueobject.OrderStatusRefunded) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "заказ в статусе %s нельзя вернуть", order.Status)
		}
		return s.escrow.refundInTx(ctx, order, in.Resolution)

	case valueobject.RemedyReleaseToSeller:
		if err := checkReleasable(order); err != nil {
			return err
		}
		return s.escrow.releaseInTx(ctx, order, decimal.Zero)

	case valueobject.RemedyPartialRefund:
		if err := checkReleasable(order); err != nil {
			return err
		}
		amount := *in.RefundAmount
		if !amount.LessThan(order.EscrowAmount) {
			return apperror.Newf(apperror.ErrCodeValidation,
				"сумма частичного возврата должна быть меньше удерживаемой (%s)", order.EscrowAmount.StringFixed(2))
		}
		if err := s.escrow.releaseInTx(ctx, order, amount); err != nil {
			return err
		}
		return s.escrow.refundPayment(ctx, order, amount, in.Resolution, fmt.Sprintf("dispute-%s-partial", d.ID))

	case valueobject.RemedyCancelled:
		if err := s.escrow.cancelInTx(ctx, order, in.Resolution); err != nil {
			return err
		}
		return s.orders.AddNote(ctx, &models.OrderNote{
			OrderID:  order.ID,
			AuthorID: actor.ID,
			Body:     fmt.Sprintf("Отменён по спору %s: %s", d.ID, in.Resolution),
		})
	}
	return nil
}

// AddNote добавляет заметку администратора. Закрытый спор не принимает заметки.
func (s *DisputeService) AddNote(ctx context.Context, actor *models.Admin, id uuid.UUID, in NoteInput) (*models.DisputeMessage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body, err := validation.RequiredText("заметка", "текст заметки не может быть пустым", in.Body, validation.MaxNoteLength)
	if err != nil {
		return nil, err
	}
	attachments, err := validation.Attachments(in.Attachments)
	if err != nil {
		return nil, err
	}

	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор закрыт, заметки не принимаются")
	}

	msg := &models.DisputeMessage{
		DisputeID:   id,
		AuthorID:    actor.ID,
		AuthorRole:  models.MessageAuthorAdmin,
		Body:        body,
		IsInternal:  in.Internal,
		Attachments: attachments,
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.disputes.AddMessage(ctx, msg, disputeEditable); err != nil {
			return err
		}
		return s.audit(ctx, actor, "dispute.note", EntityDispute, id, map[string]interface{}{
			"message_id": msg.ID,
			"internal":   in.Internal,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	s.updated(EntityDispute, id)
	return msg, nil
}

func (s *DisputeService) evidenceURLs(ctx context.Context, d *models.Dispute) []string {
	urls := make([]string, 0, len(d.Evidence))
	for _, key := range d.Evidence {
		if s.evidence == nil || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
			urls = append(urls, key)
			continue
		}
		u, err := s.evidence.URL(ctx, key, s.evidenceTTL)
		if err != nil {
			logger.Log.WithError(err).WithFields(logrus.Fields{
				"dispute_id": d.ID,
				"key":        key,
			}).Warn("dispute: evidence link failed")
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

func (s *DisputeService) getDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrDisputeNotFound, "спор не найден")
	}
	return d, nil
}
