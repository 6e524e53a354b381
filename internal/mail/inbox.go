package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

const (
	maxReplyScan  = 500
	maxBounceScan = 200
)

var addrRe = regexp.MustCompile(`[\w.+-]+@([\w.-]+)`)

// InboxConfig locates one IMAP mailbox.
type InboxConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// Plaintext dials without TLS. Only for local test servers.
	Plaintext bool
}

// ScanResult lists pending domains found in an inbox.
type ScanResult struct {
	Replied []string
	Bounced []string
}

// Inbox scans one IMAP mailbox for replies and bounces.
type Inbox struct {
	cfg    InboxConfig
	logger *zap.Logger
}

// NewInbox creates an Inbox for cfg.
func NewInbox(cfg InboxConfig, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Inbox{cfg: cfg, logger: logger.With(zap.String("inbox", cfg.Username))}
}

// Scan looks at messages received since the given time. A message from a
// pending domain is a reply; a mailer-daemon message whose text mentions an
// address on a pending domain is a bounce. The mailbox is opened read-only.
func (i *Inbox) Scan(ctx context.Context, since time.Time, pending map[string]struct{}) (ScanResult, error) {
	var res ScanResult
	if len(pending) == 0 {
		return res, nil
	}

	c, err := i.connect()
	if err != nil {
		return res, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return res, fmt.Errorf("selecting INBOX: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Replied, err = i.scanReplies(c, since, pending)
	if err != nil {
		return res, err
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Bounced, err = i.scanBounces(c, since, pending)
	if err != nil {
		return res, err
	}

	i.logger.Debug("inbox scanned", zap.Int("replied", len(res.Replied)), zap.Int("bounced", len(res.Bounced)))
	return res, nil
}

func (i *Inbox) connect() (*client.Client, error) {
	addr := net.JoinHostPort(i.cfg.Host, strconv.Itoa(i.cfg.Port))
	dialer := &net.Dialer{Timeout: i.cfg.Timeout}

	var (
		c   *client.Client
		err error
	)
	if i.cfg.Plaintext {
		c, err = client.DialWithDialer(dialer, addr)
	} else {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: i.cfg.Host})
	}
	if err != nil {
		return nil, neterr.Wrap("imap dial", err)
	}
	c.Timeout = i.cfg.Timeout

	if err := c.Login(i.cfg.Username, i.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func (i *Inbox) scanReplies(c *client.Client, since time.Time, pending map[string]struct{}) ([]string, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching replies: %w", err)
	}
	ids = latest(ids, maxReplyScan)
	if len(ids) == 0 {
		return nil, nil
	}

	var from []string
	err = fetch(c, ids, []imap.FetchItem{imap.FetchEnvelope}, func(msg *imap.Message) {
		if msg.Envelope == nil {
			return
		}
		for _, a := range msg.Envelope.From {
			if a != nil {
				from = append(from, a.HostName)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}
	return MatchReplies(from, pending), nil
}

func (i *Inbox) scanBounces(c *client.Client, since time.Time, pending map[string]struct{}) ([]string, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.Header.Add("From", "mailer-daemon")
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching bounces: %w", err)
	}
	ids = latest(ids, maxBounceScan)
	if len(ids) == 0 {
		return nil, nil
	}

	section := &imap.BodySectionName{Peek: true}
	found := make(map[string]struct{})
	err = fetch(c, ids, []imap.FetchItem{section.FetchItem()}, func(msg *imap.Message) {
		body := msg.GetBody(section)
		if body == nil {
			return
		}
		text, err := PlainText(body)
		if err != nil {
			i.logger.Debug("unreadable bounce", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
		}
		for _, d := range MatchBounces(text, pending) {
			found[d] = struct{}{}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetching bounces: %w", err)
	}
	return sortedKeys(found), nil
}

func fetch(c *client.Client, ids []uint32, items []imap.FetchItem, each func(*imap.Message)) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()
	for msg := range messages {
		each(msg)
	}
	return <-done
}

func latest(ids []uint32, n int) []uint32 {
	if len(ids) > n {
		return ids[len(ids)-n:]
	}
	return ids
}

// MatchReplies returns the pending domains among the sender host names.
func MatchReplies(fromHosts []string, pending map[string]struct{}) []string {
	found := make(map[string]struct{})
	for _, h := range fromHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := pending[h]; ok {
			found[h] = struct{}{}
		}
	}
	return sortedKeys(found)
}

// MatchBounces returns the pending domains of every address mentioned in text.
func MatchBounces(text string, pending map[string]struct{}) []string {
	found := make(map[string]struct{})
	for _, m := range addrRe.FindAllStringSubmatch(text, -1) {
		d := strings.ToLower(strings.TrimRight(m[1], "."))
		if _, ok := pending[d]; ok {
			found[d] = struct{}{}
		}
	}
	return sortedKeys(found)
}

// PlainText concatenates the text/plain parts of a raw message. Whatever was
// read before a parse error is returned along with it.
func PlainText(r io.Reader) (string, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	var sb strings.Builder
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), fmt.Errorf("reading part: %w", err)
		}
		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct != "text/plain" {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return sb.String(), fmt.Errorf("reading text part: %w", err)
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
