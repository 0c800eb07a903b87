package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository"
	"github.com/ignatzorin/market-backoffice/internal/validation"
)

// ProductModerationService модерирует товары: одобрение, приостановка и бан
// меняются независимо, доступность пересчитывается при каждой записи.
type ProductModerationService struct {
	WorkflowDeps
	products ProductRepository
}

func NewProductModerationService(deps WorkflowDeps, products ProductRepository) *ProductModerationService {
	return &ProductModerationService{
		WorkflowDeps: deps.withDefaults(),
		products:     products,
	}
}

// sellerNotice текст уведомления продавцу; пустой title означает "не уведомлять".
type sellerNotice func(p *models.Product) (title, message string)

func (s *ProductModerationService) Approve(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return s.moderate(ctx, actor, id, "product.approve", func(p *models.Product) error {
		if !p.ApprovalStatus.CanTransitionTo(valueobject.ApprovalStatusApproved) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "товар в статусе %s нельзя одобрить", p.ApprovalStatus)
		}
		p.ApprovalStatus = valueobject.ApprovalStatusApproved
		p.RejectionReason = nil
		return nil
	}, func(p *models.Product) (string, string) {
		return "Товар одобрен", fmt.Sprintf("Товар «%s» прошёл модерацию", p.Title)
	})
}

func (s *ProductModerationService) Reject(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	reason, err := validation.Reason("укажите причину отклонения", reason)
	if err != nil {
		return nil, s.reasonRequired(actor, err)
	}
	return s.moderate(ctx, actor, id, "product.reject", func(p *models.Product) error {
		if !p.ApprovalStatus.CanTransitionTo(valueobject.ApprovalStatusRejected) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "товар в статусе %s нельзя отклонить", p.ApprovalStatus)
		}
		p.ApprovalStatus = valueobject.ApprovalStatusRejected
		p.RejectionReason = &reason
		return nil
	}, func(p *models.Product) (string, string) {
		return "Товар отклонён", fmt.Sprintf("Товар «%s» не прошёл модерацию: %s", p.Title, reason)
	})
}

func (s *ProductModerationService) Suspend(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	reason, err := validation.Reason("укажите причину приостановки", reason)
	if err != nil {
		return nil, s.reasonRequired(actor, err)
	}
	return s.moderate(ctx, actor, id, "product.suspend", func(p *models.Product) error {
		if p.AdminSuspended {
			return apperror.New(apperror.ErrCodeInvalidTransition, "товар уже приостановлен")
		}
		p.AdminSuspended = true
		p.SuspensionReason = &reason
		return nil
	}, func(p *models.Product) (string, string) {
		return "Товар приостановлен", fmt.Sprintf("Показ товара «%s» приостановлен: %s", p.Title, reason)
	})
}

// Unsuspend снимает приостановку. Забаненный товар сначала нужно разбанить.
func (s *ProductModerationService) Unsuspend(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return s.moderate(ctx, actor, id, "product.unsuspend", func(p *models.Product) error {
		if p.IsBanned {
			return apperror.New(apperror.ErrCodeInvalidTransition, "товар заблокирован, сначала снимите бан")
		}
		if !p.AdminSuspended {
			return apperror.New(apperror.ErrCodeInvalidTransition, "товар не приостановлен")
		}
		p.AdminSuspended = false
		p.SuspensionReason = nil
		return nil
	}, func(p *models.Product) (string, string) {
		return "Показ товара возобновлён", fmt.Sprintf("Товар «%s» снова виден покупателям", p.Title)
	})
}

func (s *ProductModerationService) Ban(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error) {
	reason, err := validation.Reason("укажите причину блокировки", reason)
	if err != nil {
		return nil, s.reasonRequired(actor, err)
	}
	return s.moderate(ctx, actor, id, "product.ban", func(p *models.Product) error {
		if p.IsBanned {
			return apperror.New(apperror.ErrCodeInvalidTransition, "товар уже заблокирован")
		}
		p.IsBanned = true
		p.BanReason = &reason
		if p.SuspensionReason == nil {
			p.SuspensionReason = &reason
		}
		return nil
	}, func(p *models.Product) (string, string) {
		return "Товар заблокирован", fmt.Sprintf("Товар «%s» заблокирован: %s", p.Title, reason)
	})
}

// Unban снимает только бан: приостановка остаётся до явного Unsuspend.
func (s *ProductModerationService) Unban(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error) {
	return s.moderate(ctx, actor, id, "product.unban", func(p *models.Product) error {
		if !p.IsBanned {
			return apperror.New(apperror.ErrCodeInvalidTransition, "товар не заблокирован")
		}
		p.IsBanned = false
		p.BanReason = nil
		return nil
	}, func(p *models.Product) (string, string) {
		return "Блокировка снята", fmt.Sprintf("С товара «%s» снята блокировка, показ остаётся приостановленным", p.Title)
	})
}

// BulkApprove одобряет товары по одному; ошибка одного не отменяет остальные.
func (s *ProductModerationService) BulkApprove(ctx context.Context, actor *models.Admin, ids []uuid.UUID) ([]models.BulkResult, error) {
	return s.bulk(ctx, actor, ids, func(id uuid.UUID) error {
		_, err := s.Approve(ctx, actor, id)
		return err
	})
}

func (s *ProductModerationService) BulkReject(ctx context.Context, actor *models.Admin, ids []uuid.UUID, reason string) ([]models.BulkResult, error) {
	if _, err := validation.Reason("укажите причину отклонения", reason); err != nil {
		return nil, s.reasonRequired(actor, err)
	}
	return s.bulk(ctx, actor, ids, func(id uuid.UUID) error {
		_, err := s.Reject(ctx, actor, id, reason)
		return err
	})
}

// ResolveAppeal закрывает апелляцию продавца. Принятая апелляция снимает
// приостановку, но не бан.
func (s *ProductModerationService) ResolveAppeal(ctx context.Context, actor *models.Admin, appealID uuid.UUID, accept bool, note string) (*models.ProductAppeal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	appeal, err := s.products.GetAppeal(ctx, appealID)
	if err != nil {
		return nil, notFound(err, repository.ErrAppealNotFound, "апелляция не найдена")
	}
	if appeal.Status != valueobject.AppealStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "апелляция уже рассмотрена")
	}

	status := valueobject.AppealStatusRejected
	var product *models.Product
	now := s.Now()
	if accept {
		status = valueobject.AppealStatusAccepted
		product, err = s.getProduct(ctx, appeal.ProductID)
		if err != nil {
			return nil, err
		}
		if product.IsBanned {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "товар заблокирован, апелляция не снимает бан")
		}
		product.AdminSuspended = false
		product.SuspensionReason = nil
		product.ModeratedBy = &actor.ID
		product.ModeratedAt = &now
		product.Normalize()
	}

	note, err = validation.OptionalText("комментарий", note, validation.MaxNoteLength)
	if err != nil {
		return nil, err
	}
	adminNote := optional(note)
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.products.ResolveAppeal(ctx, appealID, status, adminNote, actor.ID, now); err != nil {
			return err
		}
		if product != nil {
			if err := s.products.SaveModeration(ctx, product); err != nil {
				return err
			}
		}
		return s.audit(ctx, actor, "product.appeal", EntityAppeal, appealID, map[string]interface{}{
			"product_id": appeal.ProductID,
			"status":     status,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"appeal_id":  appealID,
		"product_id": appeal.ProductID,
		"admin_id":   actor.ID,
		"status":     status,
	}).Info("product appeal resolved")

	title, msg := "Апелляция отклонена", "Апелляция по товару отклонена"
	if accept {
		title, msg = "Апелляция принята", "Апелляция принята, показ товара возобновлён"
	}
	if adminNote != nil {
		msg += ": " + *adminNote
	}
	s.notify(ctx, appeal.SellerID, models.NotificationAppealResolved, title, msg)
	s.updated(EntityAppeal, appealID)
	if product != nil {
		s.updated(EntityProduct, product.ID)
	}

	appeal.Status = status
	appeal.AdminNote = adminNote
	appeal.ReviewedBy = &actor.ID
	appeal.ReviewedAt = &now
	return appeal, nil
}

// moderate читает товар, применяет mutate и записывает результат с проверкой версии.
func (s *ProductModerationService) moderate(ctx context.Context, actor *models.Admin, id uuid.UUID, action string, mutate func(p *models.Product) error, notice sellerNotice) (*models.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}

	now := s.Now()
	p.ModeratedBy = &actor.ID
	p.ModeratedAt = &now
	p.Normalize()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.products.SaveModeration(ctx, p); err != nil {
			return err
		}
		return s.audit(ctx, actor, action, EntityProduct, id, map[string]interface{}{
			"approval_status": p.ApprovalStatus,
			"admin_suspended": p.AdminSuspended,
			"is_banned":       p.IsBanned,
			"is_available":    p.IsAvailable,
		})
	})
	if err != nil {
		return nil, translateStale(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"product_id": id,
		"admin_id":   actor.ID,
		"action":     action,
		"available":  p.IsAvailable,
	}).Info("product moderated")

	if notice != nil {
		if title, msg := notice(p); title != "" {
			s.notify(ctx, p.SellerID, models.NotificationProductModerated, title, msg)
		}
	}
	s.updated(EntityProduct, id)
	return p, nil
}

func (s *ProductModerationService) bulk(ctx context.Context, actor *models.Admin, ids []uuid.UUID, apply func(id uuid.UUID) error) ([]models.BulkResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "список товаров пуст")
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	results := make([]models.BulkResult, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			results = append(results, models.BulkResult{
				ProductID: id,
				Error:     "товар уже указан в этом запросе",
				Duplicate: true,
			})
			continue
		}
		seen[id] = struct{}{}

		res := models.BulkResult{ProductID: id, Success: true}
		if err := apply(id); err != nil {
			res.Success = false
			res.Error = bulkErrorMessage(err)
			if apperror.CodeOf(err) == apperror.ErrCodeInternal {
				logger.Log.WithError(err).WithField("product_id", id).Error("bulk moderation failed")
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func bulkErrorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "внутренняя ошибка"
}

// reasonRequired отдаёт ошибку авторизации раньше ошибки валидации.
func (s *ProductModerationService) reasonRequired(actor *models.Admin, invalid error) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return invalid
}

func (s *ProductModerationService) getProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrProductNotFound, "товар не найден")
	}
	return p, nil
}
