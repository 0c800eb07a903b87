package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/logger"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений админ-консоли.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер; подключения принимаются только с разрешённых origin.
func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/admin/ws?token=...
// Авторизацию и проверку администратора уже выполнили middleware.
func (h *WSHandler) Handle(c *gin.Context) {
	admin := common.CurrentAdmin(c)
	if admin == nil {
		common.RespondAppError(c, apperror.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ws.NewClient(conn, h.hub, admin.ID).Run(c.Request.Context())
}
