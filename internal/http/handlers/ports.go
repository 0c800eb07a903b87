package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/service"
)

// Интерфейсы описывают то, что хэндлерам нужно от сервисов.
// Реализуются *service.DisputeService и соседями; в тестах подменяются моками.

type DisputeWorkflow interface {
	Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, actor *models.Admin, f models.DisputeFilter) ([]models.Dispute, error)
	ChangeStatus(ctx context.Context, actor *models.Admin, id uuid.UUID, status valueobject.DisputeStatus) (*models.Dispute, error)
	ChangePriority(ctx context.Context, actor *models.Admin, id uuid.UUID, priority valueobject.DisputePriority) (*models.Dispute, error)
	Assign(ctx context.Context, actor *models.Admin, id uuid.UUID, assignee *uuid.UUID) (*models.Dispute, error)
	Unassign(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, actor *models.Admin, id uuid.UUID, in service.ResolveInput) (*models.Dispute, error)
	AddNote(ctx context.Context, actor *models.Admin, id uuid.UUID, in service.NoteInput) (*models.DisputeMessage, error)
}

type WithdrawalWorkflow interface {
	Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error)
	List(ctx context.Context, actor *models.Admin, f models.WithdrawalFilter) ([]models.Withdrawal, error)
	ApproveAndProcess(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error)
	Reject(ctx context.Context, actor *models.Admin, id uuid.UUID, reason, notes string) (*models.Withdrawal, error)
	PutOnHold(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Withdrawal, error)
	Resume(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Withdrawal, error)
}

type EscrowWorkflow interface {
	Window() time.Duration
	Get(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor *models.Admin, f models.OrderFilter) ([]models.Order, error)
	ReleaseEscrow(ctx context.Context, actor *models.Admin, orderID uuid.UUID) (*models.Order, error)
	Refund(ctx context.Context, actor *models.Admin, orderID uuid.UUID, reason string) (*models.Order, error)
	Cancel(ctx context.Context, actor *models.Admin, orderID uuid.UUID, reason string) (*models.Order, error)
	AutoRefundEligibility(ctx context.Context, actor *models.Admin, orderID uuid.UUID) (models.AutoRefundEligibility, error)
	ListAutoRefundCandidates(ctx context.Context, actor *models.Admin, now time.Time, limit int) ([]models.Order, error)
}

type ModerationWorkflow interface {
	Approve(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error)
	Reject(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error)
	Suspend(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error)
	Unsuspend(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error)
	Ban(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error)
	Unban(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error)
	BulkApprove(ctx context.Context, actor *models.Admin, ids []uuid.UUID) ([]models.BulkResult, error)
	BulkReject(ctx context.Context, actor *models.Admin, ids []uuid.UUID, reason string) ([]models.BulkResult, error)
	ResolveAppeal(ctx context.Context, actor *models.Admin, appealID uuid.UUID, accept bool, note string) (*models.ProductAppeal, error)
}

var (
	_ DisputeWorkflow    = (*service.DisputeService)(nil)
	_ WithdrawalWorkflow = (*service.WithdrawalService)(nil)
	_ EscrowWorkflow     = (*service.EscrowService)(nil)
	_ ModerationWorkflow = (*service.ProductModerationService)(nil)
)
