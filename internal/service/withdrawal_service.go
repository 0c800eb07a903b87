package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// WithdrawalService обрабатывает заявки продавцов на вывод средств.
type WithdrawalService struct {
	WorkflowDeps
	withdrawals WithdrawalRepository
	wallets     WalletRepository
	gateway     PaymentGateway
	currency    string
}

func NewWithdrawalService(deps WorkflowDeps, withdrawals WithdrawalRepository, wallets WalletRepository, gateway PaymentGateway, currency string) *WithdrawalService {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &WithdrawalService{
		WorkflowDeps: deps.withDefaults(),
		withdrawals:  withdrawals,
		wallets:      wallets,
		gateway:      gateway,
		currency:     currency,
	}
}

func (s *WithdrawalService) Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.getWithdrawal(ctx, id)
}

func (s *WithdrawalService) List(ctx context.Context, actor *models.Admin, f models.WithdrawalFilter) ([]models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if f.Status != nil && !f.Status.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "некорректный статус вывода %q", *f.Status)
	}
	return s.withdrawals.List(ctx, f)
}

// Request создаёт заявку продавца и списывает сумму с его баланса.
func (s *WithdrawalService) Request(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, bank models.BankDetails) (*models.Withdrawal, error) {
	if sellerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан продавец")
	}
	if err := valueobject.RequirePositive("сумма вывода", amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(bank.AccountNumber) == "" || strings.TrimSpace(bank.BankCode) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите банковские реквизиты")
	}

	w := &models.Withdrawal{
		SellerID:    sellerID,
		Amount:      amount,
		Status:      valueobject.WithdrawalStatusPending,
		BankDetails: bank,
	}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.withdrawals.Create(ctx, w); err != nil {
			return err
		}
		return s.wallets.Apply(ctx, &models.WalletTransaction{
			SellerID:     sellerID,
			Type:         models.WalletTxWithdrawalDebit,
			Amount:       amount.Neg(),
			WithdrawalID: &w.ID,
			Description:  fmt.Sprintf("Заявка на вывод %s", w.ID),
		})
	})
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "недостаточно средств на балансе")
	}
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"seller_id":     sellerID,
		"amount":        amount.String(),
	}).Info("withdrawal requested")
	s.updated(EntityWithdrawal, w.ID)
	return w, nil
}

// ApproveAndProcess переводит заявку в processing и отправляет выплату провайдеру.
// processing фиксируется до вызова провайдера и не даёт одобрить заявку дважды.
// Повторный вызов для заявки в processing завершает прерванную выплату.
func (s *WithdrawalService) ApproveAndProcess(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	w, err := s.getWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	// Заявка, застрявшая в processing (сбой после фиксации статуса), отправляется повторно:
	// провайдер идемпотентен по id заявки и не выплатит её дважды.
	retry := w.Status == valueobject.WithdrawalStatusProcessing
	if !retry && !w.Status.CanTransitionTo(valueobject.WithdrawalStatusProcessing) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "заявку в статусе %s нельзя одобрить", w.Status)
	}

	processing := valueobject.WithdrawalSourcesOf(valueobject.WithdrawalStatusCompleted)
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if retry {
			return s.audit(ctx, actor, "withdrawal.retry", EntityWithdrawal, id, map[string]interface{}{
				"amount": w.Amount.String(),
			})
		}
		err := s.withdrawals.Transition(ctx, id,
			valueobject.WithdrawalSourcesOf(valueobject.WithdrawalStatusProcessing), valueobject.WithdrawalStatusProcessing,
			models.WithdrawalPatch{ProcessedBy: &actor.ID})
		if err != nil {
			return err
		}
		return s.audit(ctx, actor, "withdrawal.approve", EntityWithdrawal, id, map[string]interface{}{
			"from":   w.Status,
			"amount": w.Amount.String(),
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}
	if retry {
		logger.Log.WithFields(logrus.Fields{
			"withdrawal_id": id,
			"admin_id":      actor.ID,
		}).Warn("withdrawal: retrying transfer for request stuck in processing")
	}

	result, gwErr := s.gateway.InitiateTransfer(ctx, models.TransferRequest{
		WithdrawalID: w.ID,
		SellerID:     w.SellerID,
		Amount:       w.Amount,
		Currency:     s.currency,
		Bank:         w.BankDetails,
	})
	now := s.Now()

	if gwErr != nil {
		reason := gwErr.Error()
		err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			err := s.withdrawals.Transition(ctx, id, processing, valueobject.WithdrawalStatusFailed,
				models.WithdrawalPatch{FailureReason: &reason, ProcessedAt: &now})
			if err != nil {
				return err
			}
			return s.audit(ctx, actor, "withdrawal.failed", EntityWithdrawal, id, map[string]interface{}{
				"reason": reason,
			})
		})
		if err != nil {
			logger.Log.WithError(err).WithField("withdrawal_id", id).Error("withdrawal: could not record transfer failure")
		}

		logger.Log.WithError(gwErr).WithFields(logrus.Fields{
			"withdrawal_id": id,
			"admin_id":      actor.ID,
		}).Warn("withdrawal transfer failed")
		s.notify(ctx, w.SellerID, models.NotificationWithdrawalUpdated, "Вывод средств не выполнен",
			fmt.Sprintf("Выплата %s %s не прошла, свяжитесь с поддержкой", w.Amount.StringFixed(2), s.currency))
		s.updated(EntityWithdrawal, id)
		return nil, apperror.Wrap(gwErr, apperror.ErrCodeDownstream, "платёжный провайдер не принял выплату")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		err := s.withdrawals.Transition(ctx, id, processing, valueobject.WithdrawalStatusCompleted,
			models.WithdrawalPatch{TransferReference: &result.Reference, ProcessedAt: &now})
		if err != nil {
			return err
		}
		return s.audit(ctx, actor, "withdrawal.completed", EntityWithdrawal, id, map[string]interface{}{
			"reference": result.Reference,
		})
	})
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"withdrawal_id": id,
			"reference":     result.Reference,
		}).Error("withdrawal: transfer sent but completion not recorded")
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"admin_id":      actor.ID,
		"reference":     result.Reference,
	}).Info("withdrawal completed")
	s.notify(ctx, w.SellerID, models.NotificationWithdrawalUpdated, "Вывод средств выполнен",
		fmt.Sprintf("Выплата %s %s отправлена на счёт %s", w.Amount.StringFixed(2), s.currency, maskAccount(w.AccountNumber)))
	s.updated(EntityWithdrawal, id)

	return s.getWithdrawal(ctx, id)
}

// Reject отклоняет заявку и возвращает сумму на баланс продавца той же транзакцией.
func (s *WithdrawalService) Reject(ctx context.Context, actor *models.Admin, id uuid.UUID, reason, notes string) (*models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason, err := validation.Reason("укажите причину отклонения", reason)
	if err != nil {
		return nil, err
	}
	notes, err = validation.OptionalText("заметка", notes, validation.MaxNoteLength)
	if err != nil {
		return nil, err
	}

	w, err := s.getWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(valueobject.WithdrawalStatusRejected) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "заявку в статусе %s нельзя отклонить", w.Status)
	}

	now := s.Now()
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		err := s.withdrawals.Transition(ctx, id,
			valueobject.WithdrawalSourcesOf(valueobject.WithdrawalStatusRejected), valueobject.WithdrawalStatusRejected,
			models.WithdrawalPatch{
				RejectionReason: &reason,
				AdminNotes:      optional(notes),
				ProcessedBy:     &actor.ID,
				RejectedAt:      &now,
			})
		if err != nil {
			return err
		}
		err = s.wallets.Apply(ctx, &models.WalletTransaction{
			SellerID:     w.SellerID,
			Type:         models.WalletTxWithdrawalReversal,
			Amount:       w.Amount,
			WithdrawalID: &w.ID,
			Description:  fmt.Sprintf("Возврат по отклонённой заявке %s", w.ID),
		})
		if err != nil {
			return err
		}
		return s.audit(ctx, actor, "withdrawal.reject", EntityWithdrawal, id, map[string]interface{}{
			"from":   w.Status,
			"reason": reason,
			"amount": w.Amount.String(),
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"admin_id":      actor.ID,
		"from":          w.Status,
	}).Info("withdrawal rejected")
	s.notify(ctx, w.SellerID, models.NotificationWithdrawalUpdated, "Заявка на вывод отклонена",
		fmt.Sprintf("Заявка на %s %s отклонена: %s. Сумма возвращена на баланс", w.Amount.StringFixed(2), s.currency, reason))
	s.updated(EntityWithdrawal, id)

	return s.getWithdrawal(ctx, id)
}

// PutOnHold приостанавливает заявку до выяснения обстоятельств.
func (s *WithdrawalService) PutOnHold(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason, err := validation.Reason("укажите причину приостановки", reason)
	if err != nil {
		return nil, err
	}
	return s.move(ctx, actor, id, valueobject.WithdrawalStatusOnHold, "withdrawal.hold",
		models.WithdrawalPatch{HoldReason: &reason, AdminNotes: &reason})
}

// Resume возвращает приостановленную заявку в очередь.
func (s *WithdrawalService) Resume(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error) {
	return s.move(ctx, actor, id, valueobject.WithdrawalStatusPending, "withdrawal.resume", models.WithdrawalPatch{})
}

// move переход без движения денег.
func (s *WithdrawalService) move(ctx context.Context, actor *models.Admin, id uuid.UUID, to valueobject.WithdrawalStatus, action string, patch models.WithdrawalPatch) (*models.Withdrawal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	w, err := s.getWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(to) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "переход %s → %s недопустим", w.Status, to)
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.withdrawals.Transition(ctx, id, []valueobject.WithdrawalStatus{w.Status}, to, patch); err != nil {
			return err
		}
		return s.audit(ctx, actor, action, EntityWithdrawal, id, map[string]interface{}{
			"from": w.Status,
			"to":   to,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"admin_id":      actor.ID,
		"from":          w.Status,
		"to":            to,
	}).Info("withdrawal status changed")
	s.updated(EntityWithdrawal, id)

	return s.getWithdrawal(ctx, id)
}

func (s *WithdrawalService) getWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrWithdrawalNotFound, "заявка на вывод не найдена")
	}
	return w, nil
}

// maskAccount оставляет последние четыре цифры счёта.
func maskAccount(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
