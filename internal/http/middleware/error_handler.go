package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

const internalMessage = "внутренняя ошибка сервера"

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если ответ ещё не отправлен.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// AbortWithError пишет конверт ошибки и прерывает цепочку.
func AbortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}

// WriteError переводит ошибку в HTTP-статус и конверт.
// Сообщения внутренних ошибок клиенту не показываются.
func WriteError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, internalMessage)
	}

	message := appErr.Message
	if appErr.Code == apperror.ErrCodeInternal {
		message = internalMessage
		logRequestError(c, err).Error("request failed")
	} else if appErr.Code == apperror.ErrCodeDownstream {
		logRequestError(c, err).Warn("downstream failure")
	}

	c.JSON(appErr.HTTPStatus, dto.Fail(string(appErr.Code), message))
}

func logRequestError(c *gin.Context, err error) *logrus.Entry {
	fields := logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}
	if admin := CurrentAdmin(c); admin != nil {
		fields["admin_id"] = admin.ID
	}
	return logger.Log.WithFields(fields).WithError(err)
}
