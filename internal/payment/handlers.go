package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeaura/invoicer/internal/logging"
)

// Handler provides HTTP endpoints for payment confirmation and receipts.
// Both routes are public: the paying client holds no session.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the public payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/invoice/mark-paid", h.MarkPaid)
	r.GET("/payment/get-receipt/:token", h.GetReceipt)
}

// MarkPaid handles POST /invoice/mark-paid
func (h *Handler) MarkPaid(c *gin.Context) {
	var req struct {
		InvoiceNumber string  `json:"invoiceNumber" binding:"required"`
		OrderID       string  `json:"orderId" binding:"required"`
		PaymentAmount float64 `json:"paymentAmount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	accessToken, err := h.service.Confirm(c.Request.Context(), req.InvoiceNumber, req.OrderID, req.PaymentAmount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Invoice not found",
			})
		case errors.Is(err, ErrAmountMismatch):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "amount_mismatch",
				"message": "Payment amount mismatch",
			})
		default:
			logging.L(c.Request.Context()).Error("payment confirmation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to confirm payment",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"message":     "Payment confirmed and invoice processed",
	})
}

// GetReceipt handles GET /payment/get-receipt/:token
func (h *Handler) GetReceipt(c *gin.Context) {
	receipt, err := h.service.Receipt(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Invalid access token",
			})
		case errors.Is(err, ErrTokenExpired):
			c.JSON(http.StatusGone, gin.H{
				"error":   "expired",
				"message": "Access token expired",
			})
		default:
			logging.L(c.Request.Context()).Error("receipt lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to fetch receipt",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoiceData": receipt})
}
