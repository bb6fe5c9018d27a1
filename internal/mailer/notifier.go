package mailer

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeaura/invoicer/internal/metrics"
	"github.com/codeaura/invoicer/internal/payment"
)

const sendTimeout = 30 * time.Second

// Notifier sends the post-payment emails: a receipt to the client and a
// notification to the operator. All sends are fire-and-forget; failures
// are logged but never surfaced to the caller.
type Notifier struct {
	sender       Sender
	operatorAddr string
	logger       *slog.Logger
}

var _ payment.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier. operatorAddr receives the
// payment-received notice.
func NewNotifier(sender Sender, operatorAddr string, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, operatorAddr: operatorAddr, logger: logger}
}

// PaymentConfirmed dispatches both post-payment emails concurrently.
func (n *Notifier) PaymentConfirmed(r *payment.Receipt) {
	if n == nil || n.sender == nil {
		return
	}

	if r.ClientEmailAddress != "" {
		msg, err := ReceiptEmail(r)
		if err != nil {
			n.logger.Error("receipt email render failed", "invoice", r.InvoiceNumber, "error", err)
		} else {
			go n.send("receipt", r.InvoiceNumber, msg)
		}
	}

	if n.operatorAddr != "" {
		msg, err := NoticeEmail(r, n.operatorAddr)
		if err != nil {
			n.logger.Error("payment notice render failed", "invoice", r.InvoiceNumber, "error", err)
		} else {
			go n.send("notice", r.InvoiceNumber, msg)
		}
	}
}

func (n *Notifier) send(kind, invoiceNumber string, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			n.logger.Error("email send panicked", "kind", kind, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	messageID, err := n.sender.Send(ctx, msg)
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues("failure").Inc()
		n.logger.Warn("email send failed",
			"kind", kind, "invoice", invoiceNumber, "to", msg.To, "error", err)
		return
	}
	metrics.EmailsSentTotal.WithLabelValues("success").Inc()
	n.logger.Info("email sent",
		"kind", kind, "invoice", invoiceNumber, "to", msg.To, "messageId", messageID)
}
