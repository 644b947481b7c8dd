package handlers

import (
	"net/http"

	"cocinarte/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateHold - POST /api/payments/holds
func (h *Handlers) CreateHold(c *gin.Context) {
	var req models.CreateHoldRequest
	if !bindJSON(c, "Create hold", &req) {
		return
	}

	resp, err := h.payments.Open(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Create hold", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VerifyHold - POST /api/payments/holds/verify
func (h *Handlers) VerifyHold(c *gin.Context) {
	var req models.PaymentRefRequest
	if !bindJSON(c, "Verify hold", &req) {
		return
	}

	resp, err := h.payments.Verify(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		respondError(c, "Verify hold", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelHold - POST /api/payments/holds/cancel
func (h *Handlers) CancelHold(c *gin.Context) {
	var req models.PaymentRefRequest
	if !bindJSON(c, "Cancel hold", &req) {
		return
	}

	resp, err := h.payments.Cancel(c.Request.Context(), req.PaymentIntentID, req.Reason)
	if err != nil {
		respondError(c, "Cancel hold", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CaptureHold - POST /api/admin/payments/capture
func (h *Handlers) CaptureHold(c *gin.Context) {
	var req models.PaymentRefRequest
	if !bindJSON(c, "Capture hold", &req) {
		return
	}

	resp, err := h.payments.Capture(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		respondError(c, "Capture hold", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refund - POST /api/payments/refunds
func (h *Handlers) Refund(c *gin.Context) {
	var req models.RefundRequest
	if !bindJSON(c, "Refund", &req) {
		return
	}

	resp, err := h.payments.Refund(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Refund", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPayments - GET /api/admin/payments?cursor=&limit=
func (h *Handlers) ListPayments(c *gin.Context) {
	limit, ok := queryInt(c, "List payments", "limit", 0)
	if !ok {
		return
	}

	resp, err := h.payments.ListPayments(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		respondError(c, "List payments", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
