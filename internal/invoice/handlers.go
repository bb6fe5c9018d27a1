package invoice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeaura/invoicer/internal/logging"
	"github.com/codeaura/invoicer/internal/metrics"
	"github.com/codeaura/invoicer/internal/validation"
)

// Handler provides HTTP endpoints for invoice operations.
type Handler struct {
	service *Service
	baseURL string // public base for shareable pay-invoice links
}

// NewHandler creates a new invoice handler.
func NewHandler(service *Service, baseURL string) *Handler {
	return &Handler{service: service, baseURL: baseURL}
}

// RegisterRoutes sets up the public (unauthenticated) invoice routes.
// The pay page fetches invoices by number without a session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/invoice/get/:invoiceNumber", h.Get)
}

// RegisterProtectedRoutes sets up operator-only invoice routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/invoice/next-number", h.NextNumber)
	r.POST("/invoice/generate", h.Generate)
	r.GET("/invoice/get-all", h.List)
	r.DELETE("/invoice/delete/:invoiceNumber", h.Delete)
}

// NextNumber handles GET /invoice/next-number
func (h *Handler) NextNumber(c *gin.Context) {
	number, err := h.service.NextNumber(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrGenerationExhausted) {
			metrics.NumberGenerationExhaustedTotal.Inc()
		}
		logging.L(c.Request.Context()).Error("invoice number generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to generate invoice number",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoiceNumber": number})
}

// Generate handles POST /invoice/generate
func (h *Handler) Generate(c *gin.Context) {
	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	inv, err := h.service.Create(c.Request.Context(), &draft)
	if err != nil {
		var verrs validation.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verrs.Error(),
				"fields":  verrs,
			})
		case errors.Is(err, ErrDuplicateNumber):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "duplicate_number",
				"message": "Invoice number already exists",
			})
		default:
			logging.L(c.Request.Context()).Error("failed to create invoice", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to create invoice",
			})
		}
		return
	}

	metrics.InvoicesCreatedTotal.Inc()
	logging.L(c.Request.Context()).Info("invoice created",
		"invoice_number", inv.InvoiceNumber,
		"amount", inv.TotalAmount,
	)

	c.JSON(http.StatusOK, gin.H{
		"invoice":      inv,
		"shareableUrl": h.baseURL + "/pay-invoice/" + inv.InvoiceNumber,
	})
}

// List handles GET /invoice/get-all
func (h *Handler) List(c *gin.Context) {
	invoices, err := h.service.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list invoices", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to fetch invoices",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// Get handles GET /invoice/get/:invoiceNumber
func (h *Handler) Get(c *gin.Context) {
	inv, err := h.service.Get(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Invoice not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to fetch invoice", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to fetch invoice",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// Delete handles DELETE /invoice/delete/:invoiceNumber
func (h *Handler) Delete(c *gin.Context) {
	inv, err := h.service.Delete(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Invoice not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to delete invoice", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to delete invoice",
		})
		return
	}

	logging.L(c.Request.Context()).Info("invoice deleted", "invoice_number", inv.InvoiceNumber)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Invoice deleted successfully",
		"deletedInvoice": inv,
	})
}
