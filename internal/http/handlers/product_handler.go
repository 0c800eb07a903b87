package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

// ProductHandler модерация товаров и апелляции продавцов.
type ProductHandler struct {
	moderation ModerationWorkflow
}

func NewProductHandler(m ModerationWorkflow) *ProductHandler {
	return &ProductHandler{moderation: m}
}

type productAction func(ctx context.Context, actor *models.Admin, id uuid.UUID) (*models.Product, error)

type productReasonAction func(ctx context.Context, actor *models.Admin, id uuid.UUID, reason string) (*models.Product, error)

// Approve POST /api/admin/products/:id/approve
func (h *ProductHandler) Approve(c *gin.Context) { h.run(c, h.moderation.Approve) }

// Reject POST /api/admin/products/:id/reject
func (h *ProductHandler) Reject(c *gin.Context) { h.runWithReason(c, h.moderation.Reject) }

// Suspend POST /api/admin/products/:id/suspend
func (h *ProductHandler) Suspend(c *gin.Context) { h.runWithReason(c, h.moderation.Suspend) }

// Unsuspend POST /api/admin/products/:id/unsuspend
func (h *ProductHandler) Unsuspend(c *gin.Context) { h.run(c, h.moderation.Unsuspend) }

// Ban POST /api/admin/products/:id/ban
func (h *ProductHandler) Ban(c *gin.Context) { h.runWithReason(c, h.moderation.Ban) }

// Unban POST /api/admin/products/:id/unban
func (h *ProductHandler) Unban(c *gin.Context) { h.run(c, h.moderation.Unban) }

// BulkApprove POST /api/admin/products/bulk/approve
func (h *ProductHandler) BulkApprove(c *gin.Context) {
	var req dto.BulkModerationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	results, err := h.moderation.BulkApprove(c.Request.Context(), common.CurrentAdmin(c), req.ProductIDs)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, results)
}

// BulkReject POST /api/admin/products/bulk/reject
func (h *ProductHandler) BulkReject(c *gin.Context) {
	var req dto.BulkModerationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	results, err := h.moderation.BulkReject(c.Request.Context(), common.CurrentAdmin(c), req.ProductIDs, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, results)
}

// ResolveAppeal POST /api/admin/appeals/:id/resolve
func (h *ProductHandler) ResolveAppeal(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ResolveAppealRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	appeal, err := h.moderation.ResolveAppeal(c.Request.Context(), common.CurrentAdmin(c), id, *req.Accept, req.Note)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, appeal)
}

func (h *ProductHandler) run(c *gin.Context, action productAction) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	product, err := action(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, product)
}

func (h *ProductHandler) runWithReason(c *gin.Context, action productReasonAction) {
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
	product, err := action(c.Request.Context(), common.CurrentAdmin(c), id, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, product)
}
