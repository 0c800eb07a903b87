package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChangeDisputeStatusRequest moves a dispute between open and under_review or closes it.
type ChangeDisputeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangePriorityRequest sets a dispute priority.
type ChangePriorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

// AssignDisputeRequest assigns a dispute; an empty admin_id means "to me".
type AssignDisputeRequest struct {
	AdminID *uuid.UUID `json:"admin_id"`
}

// ResolveDisputeRequest closes a dispute with a remedy.
type ResolveDisputeRequest struct {
	Action       string           `json:"action" binding:"required"`
	Resolution   string           `json:"resolution" binding:"required"`
	AdminNotes   string           `json:"admin_notes"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
}

// AddNoteRequest appends a message to the dispute thread.
type AddNoteRequest struct {
	Body        string   `json:"body" binding:"required"`
	Internal    bool     `json:"internal"`
	Attachments []string `json:"attachments"`
}

// RejectWithdrawalRequest rejects a payout and returns the funds.
type RejectWithdrawalRequest struct {
	Reason     string `json:"reason" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// ReasonRequest is shared by every action that needs a free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// BulkModerationRequest approves or rejects several products at once.
type BulkModerationRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" binding:"required"`
	Reason     string      `json:"reason"`
}

// ResolveAppealRequest accepts or rejects a seller appeal.
type ResolveAppealRequest struct {
	Accept *bool  `json:"accept" binding:"required"`
	Note   string `json:"note"`
}
