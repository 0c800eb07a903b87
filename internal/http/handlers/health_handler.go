package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/dto"
)

// Pinger проверяет доступность базы.
type Pinger func(ctx context.Context) error

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	ping Pinger
}

// NewHealthHandler создаёт новый health handler.
func NewHealthHandler(ping Pinger) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Code:    "UNHEALTHY",
			Error:   "база данных недоступна",
			Data:    dto.HealthResponse{Status: "unhealthy", Database: "unreachable"},
		})
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.HealthResponse{Status: "healthy", Database: "ok"}))
}
