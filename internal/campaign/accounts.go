package campaign

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/config"
	"github.com/TobiSchelling/leadcrawler/internal/mail"
)

// InboxScanner finds replies and bounces in one account's inbox.
type InboxScanner interface {
	Scan(ctx context.Context, since time.Time, pending map[string]struct{}) (mail.ScanResult, error)
}

// Account is a sender mailbox with its warm-up schedule.
type Account struct {
	Email   string
	Created time.Time
	// DailyLimit overrides the warm-up quota when positive.
	DailyLimit int
	// Inbox is nil when the account has no IMAP endpoint.
	Inbox InboxScanner
}

// WarmupLimit is the fresh-send quota for an account ageDays old.
func WarmupLimit(ageDays int) int {
	switch {
	case ageDays < 14:
		return 15
	case ageDays < 28:
		return 25
	case ageDays < 42:
		return 35
	}
	return 50
}

// Quota returns the account's fresh-send limit on day.
func (a Account) Quota(day time.Time) int {
	if a.DailyLimit > 0 {
		return a.DailyLimit
	}
	age := int(truncateDay(day).Sub(truncateDay(a.Created)).Hours() / 24)
	return WarmupLimit(age)
}

// FreshQuota sums the quotas of every account.
func FreshQuota(accounts []Account, day time.Time) int {
	total := 0
	for _, a := range accounts {
		total += a.Quota(day)
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewAccounts builds accounts from configuration. Accounts with an IMAP host
// get an inbox scanner using the account password.
func NewAccounts(cfg []config.Account, timeout time.Duration, logger *zap.Logger) ([]Account, error) {
	out := make([]Account, 0, len(cfg))
	for _, c := range cfg {
		created, err := c.CreatedDate()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", c.Email, err)
		}
		a := Account{Email: c.Email, Created: created, DailyLimit: c.DailyLimit}
		if c.IMAPHost != "" {
			a.Inbox = mail.NewInbox(mail.InboxConfig{
				Host:     c.IMAPHost,
				Port:     c.IMAPPort,
				Username: c.Email,
				Password: c.Password(),
				Timeout:  timeout,
			}, logger)
		}
		out = append(out, a)
	}
	return out, nil
}

// Mailer submits a message from the named sender account.
type Mailer interface {
	Send(ctx context.Context, from string, msg *mail.Message) error
}

// TransportMailer routes sends through a mail.Transport using each
// account's submission settings.
type TransportMailer struct {
	transport *mail.Transport
	accounts  map[string]mail.Account
}

// NewTransportMailer maps configured accounts onto t.
func NewTransportMailer(t *mail.Transport, cfg []config.Account) *TransportMailer {
	m := &TransportMailer{transport: t, accounts: make(map[string]mail.Account, len(cfg))}
	for _, c := range cfg {
		m.accounts[c.Email] = mail.Account{
			Email:    c.Email,
			Password: c.Password(),
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
		}
	}
	return m
}

func (m *TransportMailer) Send(ctx context.Context, from string, msg *mail.Message) error {
	acct, ok := m.accounts[from]
	if !ok {
		return fmt.Errorf("unknown sender account %s", from)
	}
	return m.transport.Send(ctx, acct, msg)
}

// Close closes the underlying transport.
func (m *TransportMailer) Close() error {
	return m.transport.Close()
}
