package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

var ErrAdminNotFound = errors.New("admin not found")

const adminColumns = `id, user_id, email, full_name, role, is_active, created_at`

// AdminRepository справочник администраторов.
type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a, err := common.GetByID[models.Admin](ctx, common.Executor(ctx, r.db),
		`SELECT `+adminColumns+` FROM admins WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)), ErrAdminNotFound)
	if err != nil && !errors.Is(err, ErrAdminNotFound) {
		return nil, fmt.Errorf("admin repository: find by email: %w", err)
	}
	return a, err
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	a, err := common.GetByID[models.Admin](ctx, common.Executor(ctx, r.db),
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id, ErrAdminNotFound)
	if err != nil && !errors.Is(err, ErrAdminNotFound) {
		return nil, fmt.Errorf("admin repository: get: %w", err)
	}
	return a, err
}
