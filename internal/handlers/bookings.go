package handlers

import (
	"net/http"
	"strconv"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/middleware"
	"cocinarte/internal/models"

	"github.com/gin-gonic/gin"
)

func optionalID(c *gin.Context, op, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(c, op, apperrors.Validation(name, "must be an integer"))
		return nil, false
	}
	return &id, true
}

// ListBookings - GET /api/admin/bookings
// Filters: classId, studentId, email, paymentStatus, status, from, to, limit, offset
func (h *Handlers) ListBookings(c *gin.Context) {
	const op = "List bookings"
	filter := models.BookingFilter{
		Email:         c.Query("email"),
		PaymentStatus: c.Query("paymentStatus"),
		Status:        c.Query("status"),
	}

	var ok bool
	if filter.ClassID, ok = optionalID(c, op, "classId"); !ok {
		return
	}
	if filter.StudentID, ok = optionalID(c, op, "studentId"); !ok {
		return
	}
	if filter.From, ok = queryDate(c, op, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, op, "to"); !ok {
		return
	}
	if filter.Limit, ok = queryInt(c, op, "limit", 0); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, op, "offset", 0); !ok {
		return
	}

	bookings, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "Get booking")
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get booking", err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DeleteBooking - DELETE /api/admin/bookings/:id
func (h *Handlers) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c, "Delete booking")
	if !ok {
		return
	}

	if err := h.bookings.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Delete booking", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MyBookings - GET /api/me/bookings
func (h *Handlers) MyBookings(c *gin.Context) {
	id, _ := middleware.IdentityFromContext(c.Request.Context())

	bookings, err := h.bookings.ListForCustomer(c.Request.Context(), id.Email)
	if err != nil {
		respondError(c, "List my bookings", err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}
