package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// Context ключи для gin.Context.
const (
	ContextUserKey  = "currentUser"
	ContextAdminKey = "admin"
)

// TokenVerifier проверяет access токен провайдера авторизации.
type TokenVerifier interface {
	Verify(token string) (models.CurrentUser, error)
}

// AdminResolver находит активного администратора по личности из токена.
type AdminResolver interface {
	Resolve(ctx context.Context, user models.CurrentUser) (*models.Admin, error)
}

// AuthMiddleware проверяет JWT access токен.
// Браузер не умеет ставить заголовки на WebSocket, поэтому для upgrade-запросов
// токен принимается и из ?token=.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, apperror.ErrUnauthenticated)
			return
		}

		user, err := tokens.Verify(raw)
		if err != nil || user.IsZero() {
			AbortWithError(c, apperror.New(apperror.ErrCodeUnauthenticated, "токен невалиден"))
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireAdmin пускает дальше только активных администраторов и кладёт запись в контекст.
func RequireAdmin(guard AdminResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			AbortWithError(c, apperror.ErrUnauthenticated)
			return
		}

		admin, err := guard.Resolve(c.Request.Context(), user)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ContextAdminKey, admin)
		c.Next()
	}
}

// CurrentUser возвращает личность, положенную AuthMiddleware.
func CurrentUser(c *gin.Context) (models.CurrentUser, bool) {
	raw, exists := c.Get(ContextUserKey)
	if !exists {
		return models.CurrentUser{}, false
	}
	user, ok := raw.(models.CurrentUser)
	return user, ok
}

// CurrentAdmin возвращает администратора, положенного RequireAdmin.
func CurrentAdmin(c *gin.Context) *models.Admin {
	raw, exists := c.Get(ContextAdminKey)
	if !exists {
		return nil
	}
	admin, _ := raw.(*models.Admin)
	return admin
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}
