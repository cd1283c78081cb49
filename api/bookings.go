package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	CustomerID  int64 `json:"customer_id" binding:"required"`
	EventID     int64 `json:"event_id" binding:"required"`
	TicketCount int   `json:"ticket_count" binding:"required"`
}

type updateBookingRequest struct {
	EventID     int64 `json:"event_id" binding:"required"`
	TicketCount int   `json:"ticket_count" binding:"required"`
}

type bookingResponse struct {
	ID          string `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	EventID     int64  `json:"event_id"`
	TicketCount int    `json:"ticket_count"`
	TotalPrice  string `json:"total_price"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes on an /api/v1 group.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	bookings := router.Group("/bookings")
	bookings.POST("", h.create)
	bookings.GET("/:id", h.get)
	bookings.PUT("/:id", h.update)
	bookings.POST("/:id/confirm", h.confirm)
	bookings.DELETE("/:id", h.cancel)

	router.GET("/customers/:id/bookings", h.listByCustomer)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		CustomerID:  req.CustomerID,
		EventID:     req.EventID,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) listByCustomer(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid customer id", domain.ErrInvalidArgument))
		return
	}

	list, err := h.service.ListCustomerBookings(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBookingResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) update(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), c.Param("id"), booking.UpdateBookingInput{
		EventID:     req.EventID,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	confirmed, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(confirmed))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		CustomerID:  b.CustomerID,
		EventID:     b.EventID,
		TicketCount: b.TicketCount,
		TotalPrice:  domain.FormatCents(b.TotalPriceCents),
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}
