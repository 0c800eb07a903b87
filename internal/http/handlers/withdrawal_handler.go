package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

// WithdrawalHandler обслуживает выплаты продавцам.
type WithdrawalHandler struct {
	withdrawals WithdrawalWorkflow
}

func NewWithdrawalHandler(w WithdrawalWorkflow) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: w}
}

// List GET /api/admin/withdrawals?status=&seller_id=
func (h *WithdrawalHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := models.WithdrawalFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status := valueobject.WithdrawalStatus(raw)
		filter.Status = &status
	}
	seller, err := common.ParseUUIDQuery(c, "seller_id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	filter.SellerID = seller

	items, err := h.withdrawals.List(c.Request.Context(), common.CurrentAdmin(c), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondList(c, items, len(items), limit, offset)
}

// Get GET /api/admin/withdrawals/:id
func (h *WithdrawalHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	w, err := h.withdrawals.Get(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, w)
}

// Approve POST /api/admin/withdrawals/:id/approve
// Одобряет и сразу инициирует перевод; при отказе провайдера вернётся 502, заявка станет failed.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	w, err := h.withdrawals.ApproveAndProcess(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, w)
}

// Reject POST /api/admin/withdrawals/:id/reject
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.RejectWithdrawalRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	w, err := h.withdrawals.Reject(c.Request.Context(), common.CurrentAdmin(c), id, req.Reason, req.AdminNotes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, w)
}

// Hold POST /api/admin/withdrawals/:id/hold
func (h *WithdrawalHandler) Hold(c *gin.Context) {
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
	w, err := h.withdrawals.PutOnHold(c.Request.Context(), common.CurrentAdmin(c), id, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, w)
}

// Resume POST /api/admin/withdrawals/:id/resume
func (h *WithdrawalHandler) Resume(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	w, err := h.withdrawals.Resume(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, w)
}
