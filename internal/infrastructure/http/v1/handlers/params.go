package handlers

import (
	"github.com/gin-gonic/gin"

	"granja/internal/core/types"
	"granja/internal/domain/params"
)

// ParamsHandler serves the reproductive parameters.
type ParamsHandler struct {
	*BaseHandler
	service *params.Service
	today   func() types.Date
}

// NewParamsHandler creates a new parameters handler. today supplies the
// default as-of date.
func NewParamsHandler(base *BaseHandler, service *params.Service, today func() types.Date) *ParamsHandler {
	if today == nil {
		today = types.Today
	}
	return &ParamsHandler{BaseHandler: base, service: service, today: today}
}

// Report handles GET /reproductive-parameters?from=&to=&asOf=
func (h *ParamsHandler) Report(c *gin.Context) {
	from, ok := h.ParseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.ParseDateQuery(c, "to")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	report, err := h.service.Report(c.Request.Context(), params.Query{From: from, To: to, AsOf: asOf})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Individual handles GET /sows/:id/parameters?asOf=
func (h *ParamsHandler) Individual(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	out, err := h.service.Individual(c.Request.Context(), sowID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

func (h *ParamsHandler) asOf(c *gin.Context) (types.Date, bool) {
	d, ok := h.ParseDateQuery(c, "asOf")
	if !ok {
		return types.Date{}, false
	}
	if d == nil {
		return h.today(), true
	}
	return *d, true
}
