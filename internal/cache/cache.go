package cache

import (
	"context"
	"strings"
	"time"

	"github.com/ignatzorin/market-backoffice/internal/models"
)

// AdminCache кэширует результат isAdmin(email). Промах возвращает (nil, false, nil).
type AdminCache interface {
	Get(ctx context.Context, email string) (*models.Admin, bool, error)
	Set(ctx context.Context, email string, admin *models.Admin, ttl time.Duration) error
}

func adminKey(email string) string {
	return "admin:" + strings.ToLower(strings.TrimSpace(email))
}
