package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

// AuditRepository пишет журнал действий администраторов.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record добавляет запись. Внутри WithinTx она фиксируется вместе с действием.
func (r *AuditRepository) Record(ctx context.Context, e *models.AuditEntry) error {
	details := e.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	if err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO admin_audit_log (admin_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.AdminID, e.Action, e.Entity, e.EntityID, []byte(details)).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("audit repository: record: %w", err)
	}
	return nil
}
