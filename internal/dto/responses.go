package dto

import "github.com/ignatzorin/market-backoffice/internal/models"

// Response is the envelope every admin endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK wraps a payload into a successful envelope.
func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Fail builds an error envelope.
func Fail(code, message string) Response {
	return Response{Success: false, Code: code, Error: message}
}

// Pagination represents pagination metadata
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListResponse is a page of items plus pagination metadata.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// NewList builds a page; has_more is a hint derived from a full page.
func NewList(items interface{}, count, limit, offset int) ListResponse {
	return ListResponse{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: limit > 0 && count == limit,
		},
	}
}

// AttachmentResponse is returned after a successful upload.
type AttachmentResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// DisputeDetailResponse is a dispute with its message thread and related order.
type DisputeDetailResponse struct {
	*models.Dispute
	Order *models.Order `json:"order,omitempty"`
}

// AutoRefundCandidatesResponse lists orders the sweeper would refund now.
type AutoRefundCandidatesResponse struct {
	WindowSeconds int64          `json:"window_seconds"`
	Orders        []models.Order `json:"orders"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
