package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"claudygod/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender transmits rendered emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP connection details.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends emails through an SMTP server.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the server and sends msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender only logs emails. It is used when no SMTP server is configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email not sent, no SMTP server configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	s.log.Debug("email body", zap.String("html", msg.HTML))
	return nil
}

// Mailer renders the workflow emails and hands them to a Sender.
type Mailer struct {
	sender     Sender
	templates  *template.Template
	adminEmail string
	siteURL    string
}

// NewMailer creates a new Mailer.
func NewMailer(sender Sender, adminEmail, siteURL string) (*Mailer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Mailer{
		sender:     sender,
		templates:  tmpl,
		adminEmail: adminEmail,
		siteURL:    strings.TrimRight(siteURL, "/"),
	}, nil
}

// NotifyAdminPendingZelle asks the admin to verify a Zelle transfer.
func (m *Mailer) NotifyAdminPendingZelle(ctx context.Context, order models.Order) error {
	if m.adminEmail == "" {
		return fmt.Errorf("admin email is not configured")
	}

	html, err := m.render("admin_pending_zelle.html", map[string]any{
		"Order":       order,
		"ConfirmLine": "CONFIRM " + order.Payment.TransactionID,
		"RejectLine":  "REJECT " + order.Payment.TransactionID,
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		To:      m.adminEmail,
		Subject: fmt.Sprintf("Zelle payment to verify: %s (order %s)", order.Payment.TransactionID, order.OrderID),
		HTML:    html,
	})
}

// NotifyCustomerConfirmed tells the customer that the order is confirmed.
func (m *Mailer) NotifyCustomerConfirmed(ctx context.Context, order models.Order) error {
	html, err := m.render("customer_confirmed.html", map[string]any{
		"Order":     order,
		"StatusURL": m.StatusURL(order.OrderID),
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		To:      order.Shipping.Email,
		Subject: fmt.Sprintf("Your order %s is confirmed", order.OrderID),
		HTML:    html,
	})
}

// StatusURL is the public page where a customer can follow an order.
func (m *Mailer) StatusURL(orderID string) string {
	return m.siteURL + "/order-status/" + orderID
}

func (m *Mailer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
