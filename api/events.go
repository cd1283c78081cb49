package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Domenick1991/rapidreserve/internal/capacity"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/gin-gonic/gin"
)

// AvailabilityReader returns an informational capacity snapshot. It must not
// be used to decide whether a booking fits.
type AvailabilityReader interface {
	Snapshot(ctx context.Context, eventID int64) (capacity.Snapshot, error)
}

type EventHandler struct {
	capacity AvailabilityReader
}

type availabilityResponse struct {
	EventID   int64  `json:"event_id"`
	Total     int    `json:"total_capacity"`
	Available int    `json:"available_capacity"`
	UnitPrice string `json:"unit_price"`
}

func NewEventHandler(capacity AvailabilityReader) *EventHandler {
	return &EventHandler{capacity: capacity}
}

func (h *EventHandler) Register(router *gin.RouterGroup) {
	router.GET("/events/:id/availability", h.availability)
}

func (h *EventHandler) availability(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid event id", domain.ErrInvalidArgument))
		return
	}

	snap, err := h.capacity.Snapshot(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		EventID:   snap.EventID,
		Total:     snap.Total,
		Available: snap.Available,
		UnitPrice: domain.FormatCents(snap.UnitPriceCents),
	})
}
