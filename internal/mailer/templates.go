package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/codeaura/invoicer/internal/payment"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Payment Receipt</title>
</head>
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;color:#333;background:#f8f9fa;margin:0;padding:0;">
  <div style="max-width:650px;margin:20px auto;background:#fff;border-radius:12px;overflow:hidden;">
    <div style="background:linear-gradient(135deg,#4bf7ff 0%,#2cd4da 100%);color:#012b2d;padding:30px 40px;text-align:center;">
      <div style="font-size:28px;font-weight:bold;letter-spacing:1px;">Code Aura</div>
      <div style="font-size:16px;">Payment Receipt</div>
      <div style="background:#00d1a0;color:#fff;padding:8px 20px;border-radius:25px;font-weight:bold;display:inline-block;margin-top:20px;">PAYMENT CONFIRMED</div>
    </div>
    <div style="padding:40px;">
      <p style="font-size:18px;color:#2c3e50;">Dear {{.ClientName}},</p>
      <p>Thank you for your payment. This email serves as your official receipt.</p>
      <div style="background:#f8fafc;border:2px solid #e2e8f0;border-radius:8px;padding:25px;margin:25px 0;">
        <p><strong>Invoice Number:</strong> {{.InvoiceNumber}}</p>
        <p><strong>Service:</strong> {{.ServiceTitle}}</p>
        <p><strong>Description:</strong> {{.ServiceDescription}}</p>
        <p><strong>Payment Date:</strong> {{.PaidDate}}</p>
        <p><strong>Order ID:</strong> {{.OrderID}}</p>
      </div>
      <div style="background:linear-gradient(135deg,#1f7fb0 0%,#18638c 100%);color:#fff;padding:20px;border-radius:8px;text-align:center;margin:25px 0;">
        <div style="font-size:16px;">Amount Paid</div>
        <div style="font-size:36px;font-weight:bold;">${{.Amount}}</div>
      </div>
      <p style="color:#64748b;">Questions? Reach us at <a href="mailto:info@codeaura.us" style="color:#1f7fb0;">info@codeaura.us</a>.</p>
    </div>
    <div style="background:#1a202c;color:#a0aec0;padding:30px 40px;text-align:center;font-size:14px;">
      Code Aura &middot; This receipt was generated automatically.
    </div>
  </div>
</body>
</html>`))

var noticeTmpl = template.Must(template.New("notice").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Payment Received</title>
</head>
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;color:#333;margin:0;padding:0;">
  <div style="max-width:650px;margin:20px auto;background:#fff;border:1px solid #e2e8f0;border-radius:8px;padding:30px;">
    <h2 style="color:#15803d;">Payment received</h2>
    <p><strong>Invoice:</strong> {{.InvoiceNumber}}</p>
    <p><strong>Client:</strong> {{.ClientName}} &lt;{{.ClientEmail}}&gt;</p>
    <p><strong>Service:</strong> {{.ServiceTitle}}</p>
    <p><strong>Amount:</strong> ${{.Amount}}</p>
    <p><strong>Order ID:</strong> {{.OrderID}}</p>
    <p><strong>Paid at:</strong> {{.PaidDate}}</p>
  </div>
</body>
</html>`))

type receiptData struct {
	ClientName         string
	ClientEmail        string
	InvoiceNumber      string
	ServiceTitle       string
	ServiceDescription string
	Amount             string
	OrderID            string
	PaidDate           string
}

func newReceiptData(r *payment.Receipt) receiptData {
	return receiptData{
		ClientName:         r.ClientName,
		ClientEmail:        r.ClientEmailAddress,
		InvoiceNumber:      r.InvoiceNumber,
		ServiceTitle:       r.ServiceTitle,
		ServiceDescription: r.ServiceDescription,
		Amount:             fmt.Sprintf("%.2f", r.TotalAmount),
		OrderID:            r.OrderID,
		PaidDate:           r.PaidAt.Format(time.RFC1123),
	}
}

// ReceiptEmail renders the client-facing receipt for a confirmed payment.
func ReceiptEmail(r *payment.Receipt) (Message, error) {
	var b strings.Builder
	if err := receiptTmpl.Execute(&b, newReceiptData(r)); err != nil {
		return Message{}, fmt.Errorf("render receipt email: %w", err)
	}
	return Message{
		To:      r.ClientEmailAddress,
		Subject: fmt.Sprintf("Payment Receipt - Invoice #%s | Code Aura", r.InvoiceNumber),
		HTML:    b.String(),
	}, nil
}

// NoticeEmail renders the operator notification for a confirmed payment.
func NoticeEmail(r *payment.Receipt, operatorAddr string) (Message, error) {
	var b strings.Builder
	if err := noticeTmpl.Execute(&b, newReceiptData(r)); err != nil {
		return Message{}, fmt.Errorf("render payment notice: %w", err)
	}
	return Message{
		To:      operatorAddr,
		Subject: fmt.Sprintf("Payment Received - Invoice #%s", r.InvoiceNumber),
		HTML:    b.String(),
	}, nil
}
