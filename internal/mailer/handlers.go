package mailer

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeaura/invoicer/internal/logging"
	"github.com/codeaura/invoicer/internal/metrics"
)

// Handler exposes the internal email dispatch endpoint.
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// RegisterRoutes registers the email endpoints. The group is expected to
// carry the internal-secret gate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/email/send", h.Send)
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send delivers an arbitrary email through the configured relay.
// POST /email/send
func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || req.Subject == "" || req.HTML == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Missing required fields",
		})
		return
	}

	if h.sender == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "mail_disabled",
			"message": "Email dispatch is not configured",
		})
		return
	}

	messageID, err := h.sender.Send(c.Request.Context(), Message(req))
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues("failure").Inc()
		logging.L(c.Request.Context()).Error("email send failed", "to", req.To, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "send_failed",
			"message": "Failed to send email",
		})
		return
	}

	metrics.EmailsSentTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": messageID})
}
