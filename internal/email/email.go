// Package email escalates overdue visits to shop staff over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/shopdesk/internal/visit"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// SendFunc delivers one message.
type SendFunc func(cfg SMTPConfig, to []string, subject, body string) error

// OverdueNotifier emails a digest when visits become overdue. It acts on
// heartbeat events only and sends in the background, so neither the
// heartbeat nor HTTP mutations wait on SMTP. Each visit is escalated once
// per overdue spell; a visit that is extended and later overdue again is
// escalated again.
type OverdueNotifier struct {
	cfg  SMTPConfig
	to   []string
	send SendFunc

	mu       sync.Mutex
	notified map[string]struct{}
	inflight sync.WaitGroup
}

// NewOverdueNotifier creates a notifier that mails to recipients.
func NewOverdueNotifier(cfg SMTPConfig, to []string) *OverdueNotifier {
	return &OverdueNotifier{
		cfg:      cfg,
		to:       to,
		send:     Send,
		notified: make(map[string]struct{}),
	}
}

// Notify implements visit.Notifier.
func (n *OverdueNotifier) Notify(e visit.Event) {
	if e.Kind != visit.EventHeartbeat || e.Snapshot == nil {
		return
	}

	fresh := n.pending(e.Snapshot.Alerts)
	if len(fresh) == 0 {
		return
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		n.mail(fresh)
	}()
}

// Wait blocks until digests already handed to SMTP have finished.
func (n *OverdueNotifier) Wait() {
	n.inflight.Wait()
}

func (n *OverdueNotifier) mail(fresh []visit.Alert) {
	subject := fmt.Sprintf("%d overdue visit(s)", len(fresh))
	if err := n.send(n.cfg, n.to, subject, FormatDigest(fresh)); err != nil {
		slog.Warn("sending overdue email", "visits", len(fresh), "error", err)
		// Retry on the next heartbeat.
		n.forget(fresh)
		return
	}
	slog.Info("sent overdue email", "visits", len(fresh), "to", strings.Join(n.to, ","))
}

// pending returns danger alerts not yet escalated and marks them notified.
// Visits that are no longer overdue are dropped from the notified set.
func (n *OverdueNotifier) pending(alerts []visit.Alert) []visit.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	overdue := make(map[string]struct{})
	var fresh []visit.Alert
	for _, a := range alerts {
		if a.Severity != visit.Danger {
			continue
		}
		overdue[a.ID] = struct{}{}
		if _, ok := n.notified[a.ID]; !ok {
			fresh = append(fresh, a)
			n.notified[a.ID] = struct{}{}
		}
	}
	for id := range n.notified {
		if _, ok := overdue[id]; !ok {
			delete(n.notified, id)
		}
	}
	return fresh
}

func (n *OverdueNotifier) forget(alerts []visit.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range alerts {
		delete(n.notified, a.ID)
	}
}

// FormatDigest builds a plain-text email body listing overdue visits.
func FormatDigest(alerts []visit.Alert) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi,\n\nThese customers are past their expected leave time:\n\n")

	for i, a := range alerts {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, a.CustomerName)

		details := []string{a.VisitType.Label()}
		if a.Service != "" {
			details = append(details, a.Service)
		}
		details = append(details, "arrived "+a.ArrivedAt.Local().Format("15:04"))
		fmt.Fprintf(&buf, "   %s\n", strings.Join(details, " | "))
		fmt.Fprintf(&buf, "   %s\n", a.Message)

		fmt.Fprintln(&buf)
	}

	fmt.Fprintf(&buf, "Thanks!\n")

	return buf.String()
}

// sendTimeout bounds one SMTP conversation from dial to QUIT.
const sendTimeout = 30 * time.Second

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg SMTPConfig, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return errors.New("SMTP not configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		cfg.From,
		strings.Join(to, ", "),
		subject,
		body,
	)

	return deliver(cfg, to, msg, sendTimeout)
}

// deliver runs one SMTP session. Port 465 dials TLS directly; any other
// port dials plain and upgrades with STARTTLS when the server offers it.
func deliver(cfg SMTPConfig, to []string, msg string, timeout time.Duration) (err error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	dialer := &net.Dialer{Timeout: timeout}
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	implicitTLS := cfg.Port == "465"

	var conn net.Conn
	if implicitTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if err != nil {
			_ = c.Close()
			return
		}
		if quitErr := c.Quit(); quitErr != nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if !implicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}
