package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// sendTimeout bounds one whole SMTP session when the caller's context
// carries no deadline of its own.
const sendTimeout = 10 * time.Second

// Sender delivers plain-text email over SMTP. A provider rejection is an
// ordinary error; the pipeline maps any send failure to a transient outcome.
type Sender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSender(host, port, user, pass, from string) *Sender {
	return &Sender{host: host, port: port, user: user, pass: pass, from: from}
}

// Send transmits one message to a single recipient. Auth is used only when
// a username is configured, matching unauthenticated relays in development.
// The session shares one deadline across dial, handshake and data, so a
// stalled server fails the send instead of blocking the batch.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	deadline := time.Now().Add(sendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := s.host + ":" + s.port
	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("mail: dial: %w", err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("mail: deadline: %w", err)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if s.user != "" {
		auth := smtp.PlainAuth("", s.user, s.pass, s.host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}

	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	if _, err := wc.Write([]byte(msg.String())); err != nil {
		wc.Close()
		return fmt.Errorf("mail: send: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("mail: quit: %w", err)
	}
	return nil
}
