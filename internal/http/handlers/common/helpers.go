package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/middleware"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// CurrentAdmin достаёт администратора, которого положил RequireAdmin.
// nil сервисы превратят в Unauthenticated.
func CurrentAdmin(c *gin.Context) *models.Admin {
	return middleware.CurrentAdmin(c)
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", paramName)
	}
	return parsed, nil
}

// ParseUUIDQuery читает необязательный UUID из query.
func ParseUUIDQuery(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", key)
	}
	return &parsed, nil
}

// BindJSON binds JSON request body and converts binding errors into validation errors
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса: "+err.Error())
	}
	return nil
}

// RespondAppError sends the error envelope; internal causes are logged and masked
func RespondAppError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// RespondOK sends a 200 envelope with data
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// RespondCreated sends a 201 envelope with data
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// RespondList sends a page of items
func RespondList(c *gin.Context, items interface{}, count, limit, offset int) {
	RespondOK(c, dto.NewList(items, count, limit, offset))
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
