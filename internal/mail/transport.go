package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

// Account is one submission mailbox.
type Account struct {
	Email    string
	Password string
	Host     string
	Port     int
}

func (a Account) addr() string {
	port := a.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(port))
}

// ErrInsecureAuth is returned when credentials would cross an unencrypted
// connection.
var ErrInsecureAuth = errors.New("server does not offer STARTTLS, refusing to authenticate in plaintext")

// DialFunc opens the raw connection to a submission server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Transport keeps one SMTP connection per account open for the lifetime of a
// campaign run. It is not safe for concurrent use.
type Transport struct {
	helo      string
	timeout   time.Duration
	tlsConfig *tls.Config
	dial      DialFunc
	logger    *zap.Logger

	conns map[string]*smtp.Client
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithDialer replaces the network dialer.
func WithDialer(d DialFunc) TransportOption { return func(t *Transport) { t.dial = d } }

// WithTLSConfig sets the STARTTLS configuration.
func WithTLSConfig(c *tls.Config) TransportOption { return func(t *Transport) { t.tlsConfig = c } }

// NewTransport creates a Transport. timeout bounds dialing and each SMTP command.
func NewTransport(helo string, timeout time.Duration, logger *zap.Logger, opts ...TransportOption) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if helo == "" {
		helo = "localhost"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	d := &net.Dialer{Timeout: timeout}
	t := &Transport{
		helo:    helo,
		timeout: timeout,
		dial:    d.DialContext,
		logger:  logger,
		conns:   make(map[string]*smtp.Client),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Send submits msg through acct. A dropped or timed-out connection is
// reopened and the send retried once. Refusals are returned as-is.
func (t *Transport) Send(ctx context.Context, acct Account, msg *Message) error {
	data, err := msg.Bytes(time.Now())
	if err != nil {
		return err
	}

	reconnect := func(ctx context.Context) error {
		t.drop(acct.Email)
		t.logger.Info("reconnecting", zap.String("account", acct.Email))
		_, err := t.client(ctx, acct)
		return err
	}

	return neterr.Retry(ctx, neterr.SendPolicy(reconnect), func(ctx context.Context) error {
		c, err := t.client(ctx, acct)
		if err != nil {
			return err
		}
		return t.submit(c, msg.From, msg.To, data)
	})
}

func (t *Transport) submit(c *smtp.Client, from, to string, data []byte) error {
	if err := c.Mail(from, nil); err != nil {
		_ = c.Reset()
		return neterr.Wrap("smtp mail", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		_ = c.Reset()
		return neterr.Wrap("smtp rcpt", err)
	}
	w, err := c.Data()
	if err != nil {
		_ = c.Reset()
		return neterr.Wrap("smtp data", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return neterr.Wrap("smtp data", err)
	}
	if err := w.Close(); err != nil {
		return neterr.Wrap("smtp data", err)
	}
	return nil
}

// client returns a live connection for acct, opening one if the cached
// connection is missing or fails a NOOP.
func (t *Transport) client(ctx context.Context, acct Account) (*smtp.Client, error) {
	if c, ok := t.conns[acct.Email]; ok {
		if err := c.Noop(); err == nil {
			return c, nil
		}
		t.logger.Debug("cached connection is dead", zap.String("account", acct.Email))
		t.drop(acct.Email)
	}

	c, err := t.open(ctx, acct)
	if err != nil {
		return nil, err
	}
	t.conns[acct.Email] = c
	return c, nil
}

func (t *Transport) open(ctx context.Context, acct Account) (*smtp.Client, error) {
	conn, err := t.dial(ctx, "tcp", acct.addr())
	if err != nil {
		return nil, neterr.Wrap("smtp dial", err)
	}

	c := smtp.NewClient(conn)
	c.CommandTimeout = t.timeout
	c.SubmissionTimeout = t.timeout

	if err := c.Hello(t.helo); err != nil {
		c.Close()
		return nil, neterr.Wrap("smtp hello", err)
	}

	secure := false
	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := t.tlsConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: acct.Host}
		}
		if err := c.StartTLS(cfg); err != nil {
			c.Close()
			return nil, neterr.Wrap("smtp starttls", err)
		}
		secure = true
	}

	if acct.Password != "" {
		if !secure {
			c.Close()
			return nil, fmt.Errorf("%s: %w", acct.Host, ErrInsecureAuth)
		}
		if err := c.Auth(sasl.NewPlainClient("", acct.Email, acct.Password)); err != nil {
			c.Close()
			return nil, neterr.Wrap("smtp auth", err)
		}
	}

	t.logger.Debug("smtp connected", zap.String("account", acct.Email), zap.String("server", acct.addr()))
	return c, nil
}

func (t *Transport) drop(email string) {
	if c, ok := t.conns[email]; ok {
		c.Close()
		delete(t.conns, email)
	}
}

// Close quits every open connection.
func (t *Transport) Close() error {
	var errs []error
	for email, c := range t.conns {
		if err := c.Quit(); err != nil {
			c.Close()
			errs = append(errs, fmt.Errorf("%s: %w", email, err))
		}
		delete(t.conns, email)
	}
	return errors.Join(errs...)
}
