package dto

import (
	"time"

	"github.com/turtacn/sentra/pkg/errors"
)

// APIResponse is the uniform envelope for every HTTP response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries a structured error over the wire.
type ErrorDTO struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// PaginationResponse is the pagination metadata block.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// SuccessResponse builds a success envelope.
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse builds an error envelope from any error.
func ErrorResponse(err error, traceID string) *APIResponse {
	var errorDTO *ErrorDTO
	if serr, ok := errors.AsSentraError(err); ok {
		errorDTO = &ErrorDTO{
			Code:        string(serr.Code()),
			Message:     serr.Error(),
			Description: serr.Description(),
			Metadata:    serr.Metadata(),
		}
	} else {
		errorDTO = &ErrorDTO{
			Code:        "server_error",
			Message:     "Internal server error",
			Description: err.Error(),
		}
	}
	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// WithPagination attaches pagination metadata to a map-shaped payload.
func (r *APIResponse) WithPagination(page, pageSize int, total int64) *APIResponse {
	if pageSize <= 0 {
		return r
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	if dataMap, ok := r.Data.(map[string]interface{}); ok {
		dataMap["pagination"] = PaginationResponse{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		}
	}
	return r
}
