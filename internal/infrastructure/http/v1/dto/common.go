// Package dto provides the request and response bodies of the HTTP API.
package dto

import (
	"granja/internal/core/id"
)

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// MutationResponse is returned by child-record operations. Version is the
// new aggregate version to send in the next If-Match header.
type MutationResponse struct {
	ID      string `json:"id,omitempty"`
	SowID   string `json:"sowId"`
	Version int    `json:"version"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
