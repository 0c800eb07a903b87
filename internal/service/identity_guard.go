package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/cache"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository"
)

// IdentityGuard превращает личность из токена в запись администратора.
// Вызывается один раз на запрос; результат передаётся в операции явно.
type IdentityGuard struct {
	admins AdminRepository
	cache  cache.AdminCache
	ttl    time.Duration
}

func NewIdentityGuard(admins AdminRepository, c cache.AdminCache, ttl time.Duration) *IdentityGuard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &IdentityGuard{admins: admins, cache: c, ttl: ttl}
}

// Resolve возвращает активного администратора или Unauthenticated/Unauthorized.
func (g *IdentityGuard) Resolve(ctx context.Context, user models.CurrentUser) (*models.Admin, error) {
	if user.IsZero() {
		return nil, apperror.ErrUnauthenticated
	}

	admin, err := g.lookup(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if admin == nil || !admin.IsActive {
		return nil, apperror.ErrUnauthorized
	}
	return admin, nil
}

func (g *IdentityGuard) lookup(ctx context.Context, email string) (*models.Admin, error) {
	if g.cache != nil {
		admin, ok, err := g.cache.Get(ctx, email)
		if err != nil {
			// кэш не критичен: идём в базу
			logger.Log.WithError(err).Warn("admin cache read failed")
		} else if ok {
			return admin, nil
		}
	}

	admin, err := g.admins.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAdminNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось проверить права администратора")
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, email, admin, g.ttl); err != nil {
			logger.Log.WithFields(logrus.Fields{"admin_id": admin.ID}).WithError(err).Warn("admin cache write failed")
		}
	}
	return admin, nil
}
