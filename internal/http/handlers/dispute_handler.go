package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-backoffice/internal/domain/valueobject"
	"github.com/ignatzorin/market-backoffice/internal/dto"
	"github.com/ignatzorin/market-backoffice/internal/http/handlers/common"
	"github.com/ignatzorin/market-backoffice/internal/models"
	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
	"github.com/ignatzorin/market-backoffice/internal/service"
)

type DisputeHandler struct {
	disputes DisputeWorkflow
	orders   EscrowWorkflow
}

func NewDisputeHandler(disputes DisputeWorkflow, orders EscrowWorkflow) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, orders: orders}
}

// List GET /api/admin/disputes?status=&priority=&assigned_to=&unassigned=
func (h *DisputeHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := models.DisputeFilter{Limit: limit, Offset: offset}

	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewDisputeStatus(raw)
		if err != nil {
			common.RespondAppError(c, err)
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := valueobject.DisputePriority(raw)
		filter.Priority = &priority
	}
	assignee, err := common.ParseUUIDQuery(c, "assigned_to")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	filter.AssignedTo = assignee
	if raw := c.Query("unassigned"); raw != "" {
		filter.Unassigned, _ = strconv.ParseBool(raw)
	}

	items, err := h.disputes.List(c.Request.Context(), common.CurrentAdmin(c), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondList(c, items, len(items), limit, offset)
}

// Get GET /api/admin/disputes/:id
// Вместе со спором отдаёт заказ, чтобы консоль показала эскроу.
func (h *DisputeHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	actor := common.CurrentAdmin(c)
	dispute, err := h.disputes.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	resp := dto.DisputeDetailResponse{Dispute: dispute}
	if h.orders != nil {
		order, err := h.orders.Get(c.Request.Context(), actor, dispute.OrderID)
		if err != nil && !apperror.IsNotFound(err) {
			common.RespondAppError(c, err)
			return
		}
		resp.Order = order
	}
	common.RespondOK(c, resp)
}

// ChangeStatus POST /api/admin/disputes/:id/status
func (h *DisputeHandler) ChangeStatus(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ChangeDisputeStatusRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	dispute, err := h.disputes.ChangeStatus(c.Request.Context(), common.CurrentAdmin(c), id, valueobject.DisputeStatus(req.Status))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// ChangePriority POST /api/admin/disputes/:id/priority
func (h *DisputeHandler) ChangePriority(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ChangePriorityRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	dispute, err := h.disputes.ChangePriority(c.Request.Context(), common.CurrentAdmin(c), id, valueobject.DisputePriority(req.Priority))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// Assign POST /api/admin/disputes/:id/assign
func (h *DisputeHandler) Assign(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.AssignDisputeRequest
	// пустое тело означает "закрепить за собой"
	if c.Request.ContentLength != 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.RespondAppError(c, err)
			return
		}
	}

	dispute, err := h.disputes.Assign(c.Request.Context(), common.CurrentAdmin(c), id, req.AdminID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// Unassign POST /api/admin/disputes/:id/unassign
func (h *DisputeHandler) Unassign(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	dispute, err := h.disputes.Unassign(c.Request.Context(), common.CurrentAdmin(c), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// Resolve POST /api/admin/disputes/:id/resolve
func (h *DisputeHandler) Resolve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), common.CurrentAdmin(c), id, service.ResolveInput{
		Action:       valueobject.RemedyAction(req.Action),
		Resolution:   req.Resolution,
		AdminNotes:   req.AdminNotes,
		RefundAmount: req.RefundAmount,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// AddNote POST /api/admin/disputes/:id/notes
func (h *DisputeHandler) AddNote(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	var req dto.AddNoteRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	msg, err := h.disputes.AddNote(c.Request.Context(), common.CurrentAdmin(c), id, service.NoteInput{
		Body:        req.Body,
		Internal:    req.Internal,
		Attachments: req.Attachments,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondCreated(c, msg)
}
