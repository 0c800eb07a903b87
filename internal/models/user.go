package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserRoleBuyer  = "buyer"
	UserRoleSeller = "seller"
)

// User контакт покупателя или продавца для уведомлений.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
