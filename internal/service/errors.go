package service

import (
	"errors"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/repository/common"
)

// translateStale превращает неудачную условную запись в ConflictError.
func translateStale(err error) error {
	if errors.Is(err, common.ErrStaleState) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrConflict.Message)
	}
	return err
}

// notFound превращает sentinel репозитория в NotFound, прочие ошибки оставляет как есть.
func notFound(err, sentinel error, message string) error {
	if errors.Is(err, sentinel) {
		return apperror.Wrap(err, apperror.ErrCodeNotFound, message)
	}
	return err
}

// requireActor проверяет, что операцию выполняет разрешённый администратор.
func requireActor(actor *models.Admin) error {
	if actor == nil {
		return apperror.ErrUnauthenticated
	}
	if !actor.IsActive {
		return apperror.ErrUnauthorized
	}
	return nil
}
