package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granja/internal/domain/critical"
	"granja/internal/domain/sow"
)

// CriticalHandler records heat detections, gestation monitoring, abortions
// and farrowing details.
type CriticalHandler struct {
	*BaseHandler
	service *sow.Service
}

// NewCriticalHandler creates a new critical-period handler.
func NewCriticalHandler(base *BaseHandler, service *sow.Service) *CriticalHandler {
	return &CriticalHandler{BaseHandler: base, service: service}
}

// AddHeatDetection handles POST /sows/:id/critical-periods/heat-detections
func (h *CriticalHandler) AddHeatDetection(c *gin.Context) {
	h.record(c, &critical.HeatDetection{})
}

// AddGestationMonitoring handles POST /sows/:id/critical-periods/gestation-monitoring
func (h *CriticalHandler) AddGestationMonitoring(c *gin.Context) {
	h.record(c, &critical.GestationMonitoring{})
}

// AddAbortion handles POST /sows/:id/critical-periods/abortions
func (h *CriticalHandler) AddAbortion(c *gin.Context) {
	h.record(c, &critical.Abortion{})
}

// AddFarrowingDetails handles
// POST /sows/:id/reproductive-records/:recordId/farrowing-details.
// The path record id wins over any cycleId in the body.
func (h *CriticalHandler) AddFarrowingDetails(c *gin.Context) {
	cycleID, ok := h.ParseID(c, "recordId")
	if !ok {
		return
	}
	detail := &critical.FarrowingDetail{}
	h.recordWith(c, detail, func() { detail.CycleID = cycleID })
}

func (h *CriticalHandler) record(c *gin.Context, entry critical.Entry) {
	h.recordWith(c, entry, nil)
}

func (h *CriticalHandler) recordWith(c *gin.Context, entry critical.Entry, afterBind func()) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}
	if !h.BindJSON(c, entry) {
		return
	}
	if afterBind != nil {
		afterBind()
	}

	agg, recordID, err := h.service.Record(c.Request.Context(), sowID, entry, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusCreated, sowID, recordID, agg.Version)
}

// Delete handles DELETE /sows/:id/critical-periods/:kind/:entryId
func (h *CriticalHandler) Delete(c *gin.Context) {
	sowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	kind, err := critical.ParseKind(c.Param("kind"))
	if err != nil {
		h.Error(c, err)
		return
	}
	entryID, ok := h.ParseID(c, "entryId")
	if !ok {
		return
	}
	version, ok := h.ExpectedVersion(c)
	if !ok {
		return
	}

	agg, err := h.service.DeleteCriticalEntry(c.Request.Context(), sowID, kind, entryID, version)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Mutated(c, http.StatusOK, sowID, entryID, agg.Version)
}
