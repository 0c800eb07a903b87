package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

// OrderHandler заказы и эскроу.
type OrderHandler struct {
	escrow EscrowWorkflow
	now    func() time.Time
}

func NewOrderHandler(escrow EscrowWorkflow) *OrderHandler {
	return &OrderHandler{escrow: escrow, now: time.Now}
}

// List GET /api/admin/orders?status=&seller_id=&buyer_id=
func (h *OrderHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := models.OrderFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status := valueobject.OrderStatus(raw)
		if !status.IsValid() {
			common.RespondAppError(c, apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус заказа %q", raw))
			return
		}
		filter.Status = &status
	}

	var err error
	if filter.SellerID, err = common.ParseUUIDQuery(c, "seller_id"); err != nil {
		common.RespondAppError(c, err)
		return
	}
	if filter.BuyerID, err = common.ParseUUIDQuery(c, "buyer_id"); err != nil {
		common.RespondAppError(c, err)
		return
	}

	items, err := h.escrow.List(c.Request.Context(), common.CurrentAdmin(c), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondList(c, items, len(items), limit, offset)
}

// Get GET /api/admin/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	order, err := h.escrow.Get(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, order)
}

// AutoRefund GET /api/admin/orders/:id/auto-refund
func (h *OrderHandler) AutoRefund(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	eligibility, err := h.escrow.AutoRefundEligibility(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, eligibility)
}

// AutoRefundCandidates GET /api/admin/orders/auto-refund/candidates?limit=
func (h *OrderHandler) AutoRefundCandidates(c *gin.Context) {
	limit, _ := common.GetPagination(c)
	orders, err := h.escrow.ListAutoRefundCandidates(c.Request.Context(), common.CurrentAdmin(c), h.now(), limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	common.RespondOK(c, dto.AutoRefundCandidatesResponse{
		WindowSeconds: int64(h.escrow.Window() / time.Second),
		Orders:        orders,
	})
}

// ReleaseEscrow POST /api/admin/orders/:id/release-escrow
func (h *OrderHandler) ReleaseEscrow(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	order, err := h.escrow.ReleaseEscrow(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, order)
}

// Refund POST /api/admin/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ReasonRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	order, err := h.escrow.Refund(c.Request.Context(), common.CurrentAdmin(c), id, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, order)
}

// Cancel POST /api/admin/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ReasonRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	order, err := h.escrow.Cancel(c.Request.Context(), common.CurrentAdmin(c), id, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, order)
}
