package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

type ZoneHandler struct {
	zoneService *service.ZoneService
}

func NewZoneHandler(zoneService *service.ZoneService) *ZoneHandler {
	return &ZoneHandler{zoneService: zoneService}
}

func (h *ZoneHandler) zoneAddress(c *gin.Context) (uint, int, int, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, 0, 0, false
	}
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return 0, 0, 0, false
	}
	zoneIndex, ok := parseIndexParam(c, "zone")
	if !ok {
		return 0, 0, 0, false
	}
	return id, viewIndex, zoneIndex, true
}

// ListZones returns the view's zones for the editor overlay.
func (h *ZoneHandler) ListZones(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return
	}

	zones, err := h.zoneService.ListZones(id, viewIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

func (h *ZoneHandler) AddZone(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	viewIndex, ok := parseIndexParam(c, "view")
	if !ok {
		return
	}

	var req models.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone, index, err := h.zoneService.AddZone(id, viewIndex, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"zone": zone, "index": index})
}

// SetAction replaces the zone's behavior wholesale with the requested kind.
func (h *ZoneHandler) SetAction(c *gin.Context) {
	id, viewIndex, zoneIndex, ok := h.zoneAddress(c)
	if !ok {
		return
	}

	var req models.SetZoneActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone, err := h.zoneService.SetAction(id, viewIndex, zoneIndex, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

func (h *ZoneHandler) UpdateLabel(c *gin.Context) {
	id, viewIndex, zoneIndex, ok := h.zoneAddress(c)
	if !ok {
		return
	}

	var req models.UpdateZoneLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone, err := h.zoneService.UpdateZoneLabel(id, viewIndex, zoneIndex, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	id, viewIndex, zoneIndex, ok := h.zoneAddress(c)
	if !ok {
		return
	}

	if err := h.zoneService.DeleteZone(id, viewIndex, zoneIndex); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "zone deleted successfully"})
}
