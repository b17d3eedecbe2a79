package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granja/internal/domain"
	"granja/internal/domain/cycle"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/http/v1/dto"
)

// SowHandler serves the sow aggregate and its reproductive records and
// piglets.
type SowHandler struct {
	*BaseHandler
	service *sow.Service
}

// NewSowHandler creates a new sow handler.
func NewSowHandler(base *BaseHandler, service *sow.Service) *SowHandler {
	return &SowHandler{BaseHandler: base, service: service}
}

// List handles GET /sows
func (h *SowHandler) List(c *gin.Context) {
	filter := domain.ListFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  h.ParseIntQuery(c, "limit", domain.DefaultListFilter().Limit),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromSows(result.Items, h.service.Today()),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Create handles POST /sows
func (h *SowHandler) Create(c *gin.Context) {
	var req dto.CreateSowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Register(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSow(created, h.service.Today()))
}

// Get handles GET /sows/:id. The derived cycle view is evaluated at the
// asOf query date, today by default.
func (h *SowHandler) Get(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.ParseDateQuery(c, "asOf")
	if !ok {
		return
	}

	agg, err := h.service.Get(c.Request.Context(), sowID)
	if err != nil {
		h.Error(c, err)
		return
	}

	at := h.service.Today()
	if asOf != nil {
		at = *asOf
	}
	h.OK(c, dto.FromSow(agg, at))
}

// Update handles PUT /sows/:id
func (h *SowHandler) Update(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), sowID, req.ToPatch(), req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSow(updated, h.service.Today()))
}

// Close handles POST /sows/:id/close
func (h *SowHandler) Close(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	closed, err := h.service.Close(c.Request.Context(), sowID, req.ToClosure(), req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSow(closed, h.service.Today()))
}

// Delete handles DELETE /sows/:id
func (h *SowHandler) Delete(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), sowID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddCycle handles POST /sows/:id/reproductive-records
func (h *SowHandler) AddCycle(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}
	var req cycle.Cycle
	if !h.BindJSON(c, &req) {
		return
	}

	agg, cycleID, err := h.service.AddCycle(c.Request.Context(), sowID, req, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusCreated, sowID, cycleID, agg.Version)
}

// UpdateCycle handles PUT /sows/:id/reproductive-records/:recordId
func (h *SowHandler) UpdateCycle(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cycleID, ok := h.ParseID(c, "recordId")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}
	var req cycle.Cycle
	if !h.BindJSON(c, &req) {
		return
	}

	agg, err := h.service.UpdateCycle(c.Request.Context(), sowID, cycleID, req, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusOK, sowID, cycleID, agg.Version)
}

// DeleteCycle handles DELETE /sows/:id/reproductive-records/:recordId
func (h *SowHandler) DeleteCycle(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cycleID, ok := h.ParseID(c, "recordId")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}

	agg, err := h.service.DeleteCycle(c.Request.Context(), sowID, cycleID, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusOK, sowID, cycleID, agg.Version)
}

// AddPiglet handles POST /sows/:id/piglets
func (h *SowHandler) AddPiglet(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}
	var req sow.Piglet
	if !h.BindJSON(c, &req) {
		return
	}

	agg, pigletID, err := h.service.AddPiglet(c.Request.Context(), sowID, req, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusCreated, sowID, pigletID, agg.Version)
}

// UpdatePiglet handles PUT /sows/:id/piglets/:pigletId
func (h *SowHandler) UpdatePiglet(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	pigletID, ok := h.ParseID(c, "pigletId")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}
	var req sow.Piglet
	if !h.BindJSON(c, &req) {
		return
	}

	agg, err := h.service.UpdatePiglet(c.Request.Context(), sowID, pigletID, req, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusOK, sowID, pigletID, agg.Version)
}

// DeletePiglet handles DELETE /sows/:id/piglets/:pigletId
func (h *SowHandler) DeletePiglet(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	pigletID, ok := h.ParseID(c, "pigletId")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}

	agg, err := h.service.DeletePiglet(c.Request.Context(), sowID, pigletID, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusOK, sowID, pigletID, agg.Version)
}
