package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

var ErrDisputeNotFound = errors.New("dispute not found")

const disputeColumns = `id, order_id, raised_by, raised_by_id, reason_code, description, evidence,
	status, priority, assigned_to, assigned_at, resolved_by, resolution, admin_action, admin_notes,
	resolved_at, created_at, updated_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetByID[models.Dispute](ctx, common.Executor(ctx, r.db),
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id, ErrDisputeNotFound)
	if err != nil && !errors.Is(err, ErrDisputeNotFound) {
		return nil, fmt.Errorf("dispute repository: get: %w", err)
	}
	return d, err
}

// GetForUpdate блокирует строку спора до конца текущей транзакции.
func (r *DisputeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetByID[models.Dispute](ctx, common.Executor(ctx, r.db),
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id, ErrDisputeNotFound)
	if err != nil && !errors.Is(err, ErrDisputeNotFound) {
		return nil, fmt.Errorf("dispute repository: get for update: %w", err)
	}
	return d, err
}

func (r *DisputeRepository) List(ctx context.Context, f models.DisputeFilter) ([]models.Dispute, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.Priority != nil {
		add("priority = $%d", string(*f.Priority))
	}
	if f.AssignedTo != nil {
		add("assigned_to = $%d", *f.AssignedTo)
	}
	if f.Unassigned {
		where = append(where, "assigned_to IS NULL")
	}

	query := `SELECT ` + disputeColumns + ` FROM disputes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := common.Page(f.Limit, f.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY
		CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
		created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var disputes []models.Dispute
	if err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list: %w", err)
	}
	return disputes, nil
}

// UpdateStatus переводит спор в to, только если текущий статус входит в from.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []valueobject.DisputeStatus, to valueobject.DisputeStatus) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE disputes SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(to), pq.Array(common.StatusArgs(from))))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("dispute repository: update status: %w", err)
	}
	return err
}

func (r *DisputeRepository) UpdatePriority(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, priority valueobject.DisputePriority) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE disputes SET priority = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(priority), pq.Array(common.StatusArgs(editable))))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("dispute repository: update priority: %w", err)
	}
	return err
}

// Assign назначает спор, если текущий исполнитель совпадает с expected (nil, если не назначен).
func (r *DisputeRepository) Assign(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected *uuid.UUID, assignee uuid.UUID, at time.Time) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE disputes SET assigned_to = $2, assigned_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4) AND assigned_to IS NOT DISTINCT FROM $5
	`, id, assignee, at, pq.Array(common.StatusArgs(editable)), expected))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("dispute repository: assign: %w", err)
	}
	return err
}

func (r *DisputeRepository) Unassign(ctx context.Context, id uuid.UUID, editable []valueobject.DisputeStatus, expected uuid.UUID) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE disputes SET assigned_to = NULL, assigned_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2) AND assigned_to = $3
	`, id, pq.Array(common.StatusArgs(editable)), expected))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("dispute repository: unassign: %w", err)
	}
	return err
}

// MarkResolved записывает решение спора условной записью.
func (r *DisputeRepository) MarkResolved(ctx context.Context, id uuid.UUID, from []valueobject.DisputeStatus, res models.DisputeResolution) error {
	err := common.ExpectOneRow(common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, admin_action = $3, admin_notes = COALESCE($4, admin_notes),
		    resolved_by = $5, resolved_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = ANY($7)
	`, id, res.Resolution, string(res.Action), res.AdminNotes, res.ResolvedBy, res.ResolvedAt,
		pq.Array(common.StatusArgs(from))))
	if err != nil && !errors.Is(err, common.ErrStaleState) {
		return fmt.Errorf("dispute repository: mark resolved: %w", err)
	}
	return err
}

// AddMessage добавляет сообщение, только пока спор в одном из open статусов.
func (r *DisputeRepository) AddMessage(ctx context.Context, m *models.DisputeMessage, open []valueobject.DisputeStatus) error {
	if m.Attachments == nil {
		m.Attachments = pq.StringArray{}
	}
	err := common.Executor(ctx, r.db).GetContext(ctx, m, `
		INSERT INTO dispute_messages (dispute_id, author_id, author_role, body, is_internal, attachments)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM disputes WHERE id = $1 AND status = ANY($7))
		RETURNING id, dispute_id, author_id, author_role, body, is_internal, attachments, created_at
	`, m.DisputeID, m.AuthorID, m.AuthorRole, m.Body, m.IsInternal, m.Attachments,
		pq.Array(common.StatusArgs(open)))
	if err != nil {
		if isNoRows(err) {
			return common.ErrStaleState
		}
		return fmt.Errorf("dispute repository: add message: %w", err)
	}
	return nil
}

func (r *DisputeRepository) ListMessages(ctx context.Context, disputeID uuid.UUID, includeInternal bool) ([]models.DisputeMessage, error) {
	var messages []models.DisputeMessage
	err := common.Executor(ctx, r.db).SelectContext(ctx, &messages, `
		SELECT id, dispute_id, author_id, author_role, body, is_internal, attachments, created_at
		FROM dispute_messages
		WHERE dispute_id = $1 AND ($2 OR NOT is_internal)
		ORDER BY created_at
	`, disputeID, includeInternal)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list messages: %w", err)
	}
	return messages, nil
}
