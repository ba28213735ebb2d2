// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/signaldesk/internal/core"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) (*Email, error) {
	if host == "" || from == "" || len(to) == 0 {
		return nil, fmt.Errorf("email: host, from, and to are required")
	}
	if port == 0 {
		port = 587
	}
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, signal core.Signal) error {
	subject := fmt.Sprintf("Signal: %s %s", strings.ToUpper(string(signal.Action)), signal.Symbol)
	return e.sendEmail(ctx, subject, "text/plain", formatSignal(signal))
}

func (e *Email) SendBatch(ctx context.Context, signals []core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Signal digest: %d new signals", len(signals))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>New trading signals</h2>")
	fmt.Fprintf(&sb, "<p>Sent at: %s</p><hr>", time.Now().Format("2006-01-02 15:04:05"))
	for _, signal := range signals {
		sb.WriteString(formatSignalHTML(signal))
		sb.WriteString("<hr>")
	}
	sb.WriteString("</body></html>")

	return e.sendEmail(ctx, subject, "text/html", sb.String())
}

func formatSignal(signal core.Signal) string {
	return fmt.Sprintf(`%s

Module: %s
Confidence: %d%%
Strategy: %s (%s)
Time: %s
`,
		signal.Summary(),
		signal.Module,
		signal.Confidence,
		signal.Strategy,
		signal.Timeframe,
		signal.GeneratedAt.Format("2006-01-02 15:04:05"),
	)
}

func formatSignalHTML(signal core.Signal) string {
	actionColor := "#28a745"
	if signal.Action == core.ActionSell {
		actionColor = "#dc3545"
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s</h3>
  <p><strong>Confidence:</strong> %d%%</p>
  <p><strong>Strategy:</strong> %s (%s)</p>
  <p><small>%s</small></p>
</div>
`,
		actionColor,
		html.EscapeString(signal.Summary()),
		signal.Confidence,
		html.EscapeString(signal.Strategy),
		html.EscapeString(signal.Timeframe),
		signal.GeneratedAt.Format("2006-01-02 15:04:05"),
	)
}

// sendEmail does not honor ctx cancellation once the SMTP exchange starts.
func (e *Email) sendEmail(ctx context.Context, subject, contentType, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
