package contact

import (
	"context"
	"net"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

// SMTPProber checks a recipient with HELO, MAIL FROM and RCPT TO, then quits
// without sending anything.
type SMTPProber struct {
	Helo    string
	From    string
	Timeout time.Duration
	// Port defaults to 25.
	Port string
}

func (p *SMTPProber) Probe(ctx context.Context, mxHost, email string) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	port := p.Port
	if port == "" {
		port = "25"
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(mxHost, port))
	if err != nil {
		return neterr.Wrap("probe dial", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(p.Helo); err != nil {
		return neterr.Wrap("probe helo", err)
	}
	if err := c.Mail(p.From, nil); err != nil {
		return neterr.Wrap("probe mail", err)
	}
	if err := c.Rcpt(email, nil); err != nil {
		return neterr.Wrap("probe rcpt", err)
	}
	_ = c.Quit()
	return nil
}
