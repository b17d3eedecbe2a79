package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/infrastructure/http/v1/dto"
)

// HeaderIfMatch carries the aggregate version for child-record mutations.
const HeaderIfMatch = "If-Match"

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseID reads a UUID path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", param))
		return id.Nil(), false
	}
	return parsed, true
}

// ParseDateQuery reads an optional YYYY-MM-DD query parameter.
func (h *BaseHandler) ParseDateQuery(c *gin.Context, key string) (*types.Date, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		h.Error(c, apperror.NewFieldValidation(apperror.FieldErrors{{
			Field:   key,
			Rule:    apperror.RuleInvalidFormat,
			Message: "expected YYYY-MM-DD",
		}}))
		return nil, false
	}
	return &d, true
}

// ExpectedVersion reads the If-Match header. Quotes and a weak-validator
// prefix are accepted. A missing header yields 0, which skips the up-front
// version check.
func (h *BaseHandler) ExpectedVersion(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.GetHeader(HeaderIfMatch))
	if raw == "" {
		return 0, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		h.Error(c, apperror.NewValidation("If-Match must be a positive aggregate version").
			WithDetail("header", HeaderIfMatch))
		return 0, false
	}
	return v, true
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Mutated sends the new aggregate version after a child-record change.
func (h *BaseHandler) Mutated(c *gin.Context, status int, sowID, recordID id.ID, version int) {
	resp := dto.MutationResponse{SowID: sowID.String(), Version: version}
	if !id.IsNil(recordID) {
		resp.ID = recordID.String()
	}
	c.Header("ETag", strconv.Quote(strconv.Itoa(version)))
	c.JSON(status, resp)
}
