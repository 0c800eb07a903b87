package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры пути являются валидными UUID.
// Использование: group.GET("/disputes/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	if len(paramNames) == 0 {
		paramNames = []string{"id"}
	}
	return func(c *gin.Context) {
		for _, name := range paramNames {
			raw := c.Param(name)
			if raw == "" {
				AbortWithError(c, apperror.Newf(apperror.ErrCodeValidation, "параметр %s обязателен", name))
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				AbortWithError(c, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", name))
				return
			}
		}
		c.Next()
	}
}
