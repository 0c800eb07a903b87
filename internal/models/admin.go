package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "super_admin"
)

// CurrentUser личность, которую вернул провайдер авторизации.
type CurrentUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

func (u CurrentUser) IsZero() bool {
	return u.ID == uuid.Nil || u.Email == ""
}

// Admin запись администратора платформы.
type Admin struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (a *Admin) IsSuperAdmin() bool {
	return a != nil && a.Role == AdminRoleSuperAdmin
}
