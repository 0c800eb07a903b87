package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/logger"
)

// RecoveryHandler перехватывает panic в фоновых горутинах и пишет их в лог.
type RecoveryHandler struct {
	log logrus.FieldLogger
}

func NewRecoveryHandler(log logrus.FieldLogger) *RecoveryHandler {
	return &RecoveryHandler{log: log}
}

// SafeGo запускает fn в отдельной горутине с обработкой panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.recover()
		fn()
	}()
}

// SafeGoWithContext запускает fn с контекстом, отвязанным от отмены запроса.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	go func() {
		defer rh.recover()
		fn(detached)
	}()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.log.WithFields(logrus.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("panic in background goroutine")
	}
}

// SafeGo запускает горутину через обработчик с глобальным логгером.
func SafeGo(fn func()) {
	NewRecoveryHandler(logger.Log).SafeGo(fn)
}

// SafeGoWithContext работает как SafeGo, но передаёт fn контекст.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	NewRecoveryHandler(logger.Log).SafeGoWithContext(ctx, fn)
}
