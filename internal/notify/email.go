package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailChannel struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

func NewEmailChannel(cfg SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, sendMail: smtp.SendMail}
}

func (*EmailChannel) Name() string { return tenant.ChannelEmail }

func (e *EmailChannel) Send(ctx context.Context, n Notification) error {
	if n.Email == "" {
		return errors.New("no notification email configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	return e.sendMail(addr, auth, e.cfg.From, []string{n.Email}, buildMessage(e.cfg.From, n))
}

func buildMessage(from string, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Email)
	fmt.Fprintf(&b, "Subject: Conversation %s needs a human\r\n", n.ConversationID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(n.Text(), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
