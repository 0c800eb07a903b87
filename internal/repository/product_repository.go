package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrAppealNotFound  = errors.New("product appeal not found")
)

const productColumns = `id, seller_id, title, approval_status, rejection_reason, admin_suspended,
	suspension_reason, seller_suspended, is_banned, ban_reason, is_available, version,
	moderated_by, moderated_at, created_at, updated_at`

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := common.GetByID[models.Product](ctx, common.Executor(ctx, r.db),
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id, ErrProductNotFound)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("product repository: get: %w", err)
	}
	return p, err
}

// SaveModeration записывает модерационные поля, если версия строки не изменилась
// с момента чтения. При успехе p.Version увеличивается.
func (r *ProductRepository) SaveModeration(ctx context.Context, p *models.Product) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE products SET
			approval_status   = $3,
			rejection_reason  = $4,
			admin_suspended   = $5,
			suspension_reason = $6,
			is_banned         = $7,
			ban_reason        = $8,
			is_available      = $9,
			moderated_by      = $10,
			moderated_at      = $11,
			version           = version + 1,
			updated_at        = NOW()
		WHERE id = $1 AND version = $2
	`, p.ID, p.Version, string(p.ApprovalStatus), p.RejectionReason, p.AdminSuspended, p.SuspensionReason,
		p.IsBanned, p.BanReason, p.IsAvailable, p.ModeratedBy, p.ModeratedAt))
	if err != nil {
		if errors.Is(err, common.ErrStaleState) {
			return err
		}
		return fmt.Errorf("product repository: save moderation: %w", err)
	}
	p.Version++
	return nil
}

func (r *ProductRepository) GetAppeal(ctx context.Context, id uuid.UUID) (*models.ProductAppeal, error) {
	a, err := common.GetByID[models.ProductAppeal](ctx, common.Executor(ctx, r.db), `
		SELECT id, product_id, seller_id, message, status, admin_note, reviewed_by, reviewed_at, created_at
		FROM product_appeals WHERE id = $1`, id, ErrAppealNotFound)
	if err != nil && !errors.Is(err, ErrAppealNotFound) {
		return nil, fmt.Errorf("product repository: get appeal: %w", err)
	}
	return a, err
}

// ResolveAppeal закрывает апелляцию, только если она ещё pending.
func (r *ProductRepository) ResolveAppeal(ctx context.Context, id uuid.UUID, status valueobject.AppealStatus, note *string, reviewer uuid.UUID, at time.Time) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE product_appeals SET status = $2, admin_note = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = 'pending'
	`, id, string(status), note, reviewer, at))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("product repository: resolve appeal: %w", err)
	}
	return err
}
