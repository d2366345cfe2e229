package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"marketpulse/internal/pkg/config"
	"marketpulse/internal/pkg/errs"
)

type EmailChannel struct {
	addr string
	from string
	auth smtp.Auth
}

func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return &EmailChannel{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		from: cfg.From,
		auth: auth,
	}
}

func (c *EmailChannel) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return errs.New("email recipient is empty")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)

	if err := smtp.SendMail(c.addr, c.auth, c.from, []string{to}, []byte(b.String())); err != nil {
		return errs.Wrap(err, "smtp send failed")
	}
	return nil
}
