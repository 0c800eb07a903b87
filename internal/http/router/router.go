package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/config"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers"
	"github.com/ignatzorin/market-backoffice/internal/http/middleware"
)

// Handlers собирает все хэндлеры, которые монтирует роутер.
type Handlers struct {
	Disputes      *handlers.DisputeHandler
	Withdrawals   *handlers.WithdrawalHandler
	Orders        *handlers.OrderHandler
	Products      *handlers.ProductHandler
	Attachments   *handlers.AttachmentHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens middleware.TokenVerifier,
	guard middleware.AdminResolver,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireAdmin(guard))
	admin.Use(middleware.MutatingOnly(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)))

	byID := middleware.UUIDValidator("id")

	disputes := admin.Group("/disputes")
	{
		disputes.GET("", h.Disputes.List)
		disputes.GET("/:id", byID, h.Disputes.Get)
		disputes.POST("/:id/status", byID, h.Disputes.ChangeStatus)
		disputes.POST("/:id/priority", byID, h.Disputes.ChangePriority)
		disputes.POST("/:id/assign", byID, h.Disputes.Assign)
		disputes.POST("/:id/unassign", byID, h.Disputes.Unassign)
		disputes.POST("/:id/resolve", byID, h.Disputes.Resolve)
		disputes.POST("/:id/notes", byID, h.Disputes.AddNote)
	}

	withdrawals := admin.Group("/withdrawals")
	{
		withdrawals.GET("", h.Withdrawals.List)
		withdrawals.GET("/:id", byID, h.Withdrawals.Get)
		withdrawals.POST("/:id/approve", byID, h.Withdrawals.Approve)
		withdrawals.POST("/:id/reject", byID, h.Withdrawals.Reject)
		withdrawals.POST("/:id/hold", byID, h.Withdrawals.Hold)
		withdrawals.POST("/:id/resume", byID, h.Withdrawals.Resume)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", h.Orders.List)
		orders.GET("/auto-refund/candidates", h.Orders.AutoRefundCandidates)
		orders.GET("/:id", byID, h.Orders.Get)
		orders.GET("/:id/auto-refund", byID, h.Orders.AutoRefund)
		orders.POST("/:id/release-escrow", byID, h.Orders.ReleaseEscrow)
		orders.POST("/:id/refund", byID, h.Orders.Refund)
		orders.POST("/:id/cancel", byID, h.Orders.Cancel)
	}

	products := admin.Group("/products")
	{
		products.POST("/bulk/approve", h.Products.BulkApprove)
		products.POST("/bulk/reject", h.Products.BulkReject)
		products.POST("/:id/approve", byID, h.Products.Approve)
		products.POST("/:id/reject", byID, h.Products.Reject)
		products.POST("/:id/suspend", byID, h.Products.Suspend)
		products.POST("/:id/unsuspend", byID, h.Products.Unsuspend)
		products.POST("/:id/ban", byID, h.Products.Ban)
		products.POST("/:id/unban", byID, h.Products.Unban)
	}

	admin.POST("/appeals/:id/resolve", byID, h.Products.ResolveAppeal)

	admin.POST("/attachments", h.Attachments.Upload)
	admin.GET("/attachments/:owner/:name", middleware.UUIDValidator("owner"), h.Attachments.Download)
	admin.DELETE("/attachments/:owner/:name", middleware.UUIDValidator("owner"), h.Attachments.Delete)

	if h.Notifications != nil {
		admin.GET("/users/:id/notifications", byID, h.Notifications.ListForUser)
	}

	admin.GET("/ws", h.WS.Handle)

	return r
}
