package mail

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

type received struct {
	from string
	to   string
	data string
}

type sinkBackend struct {
	mu       sync.Mutex
	sessions int
	msgs     []received
}

func (b *sinkBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	b.mu.Lock()
	b.sessions++
	b.mu.Unlock()
	return &sinkSession{b: b}, nil
}

func (b *sinkBackend) snapshot() (int, []received) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions, append([]received(nil), b.msgs...)
}

type sinkSession struct {
	b    *sinkBackend
	from string
	to   string
}

func (s *sinkSession) Reset()        { s.from, s.to = "", "" }
func (s *sinkSession) Logout() error { return nil }

func (s *sinkSession) AuthPlain(string, string) error { return smtp.ErrAuthUnsupported }

func (s *sinkSession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *sinkSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if strings.HasPrefix(to, "nobody@") {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
	}
	s.to = to
	return nil
}

func (s *sinkSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	s.b.msgs = append(s.b.msgs, received{from: s.from, to: s.to, data: string(b)})
	s.b.mu.Unlock()
	return nil
}

func startSink(t *testing.T) (*sinkBackend, Account) {
	t.Helper()
	be := &sinkBackend{}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })

	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	return be, Account{Email: "sam@outreach.io", Host: host, Port: p}
}

func TestTransportReusesConnection(t *testing.T) {
	be, acct := startSink(t)
	tr := NewTransport("outreach.io", 5*time.Second, nil)
	defer tr.Close()
	ctx := context.Background()

	for _, to := range []string{"jane@oakdental.com", "bob@elmdental.com"} {
		msg := NewMessage("Sam", acct.Email, to, "hello", "body text")
		if err := tr.Send(ctx, acct, msg); err != nil {
			t.Fatalf("send to %s: %v", to, err)
		}
	}

	sessions, msgs := be.snapshot()
	if sessions != 1 {
		t.Errorf("expected one session, got %d", sessions)
	}
	if len(msgs) != 2 || msgs[1].to != "bob@elmdental.com" || msgs[0].from != acct.Email {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if !strings.Contains(msgs[0].data, "Subject: hello") {
		t.Errorf("missing subject header in %q", msgs[0].data)
	}
}

func TestTransportRecipientRefused(t *testing.T) {
	be, acct := startSink(t)
	tr := NewTransport("outreach.io", 5*time.Second, nil)
	defer tr.Close()
	ctx := context.Background()

	err := tr.Send(ctx, acct, NewMessage("Sam", acct.Email, "nobody@oakdental.com", "hi", "x"))
	if !neterr.Is(err, neterr.ProtocolRejection) {
		t.Fatalf("expected protocol rejection, got %v", err)
	}

	// The connection stays usable after a refusal.
	if err := tr.Send(ctx, acct, NewMessage("Sam", acct.Email, "jane@oakdental.com", "hi", "x")); err != nil {
		t.Fatalf("send after refusal: %v", err)
	}
	if sessions, _ := be.snapshot(); sessions != 1 {
		t.Errorf("expected one session, got %d", sessions)
	}
}

func TestTransportReconnectsDeadConnection(t *testing.T) {
	be, acct := startSink(t)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	d := &net.Dialer{}
	tr := NewTransport("outreach.io", 5*time.Second, nil, WithDialer(func(ctx context.Context, network, addr string) (net.Conn, error) {
		c, err := d.DialContext(ctx, network, addr)
		if err == nil {
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
		return c, err
	}))
	defer tr.Close()
	ctx := context.Background()

	if err := tr.Send(ctx, acct, NewMessage("Sam", acct.Email, "a@oakdental.com", "1", "x")); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	conns[0].Close()
	mu.Unlock()

	if err := tr.Send(ctx, acct, NewMessage("Sam", acct.Email, "b@oakdental.com", "2", "x")); err != nil {
		t.Fatalf("send after drop: %v", err)
	}
	sessions, msgs := be.snapshot()
	if sessions != 2 || len(msgs) != 2 {
		t.Errorf("expected 2 sessions and 2 messages, got %d and %d", sessions, len(msgs))
	}
}

func TestTransportRefusesPlaintextAuth(t *testing.T) {
	_, acct := startSink(t)
	acct.Password = "secret"
	tr := NewTransport("outreach.io", 5*time.Second, nil)
	defer tr.Close()

	err := tr.Send(context.Background(), acct, NewMessage("Sam", acct.Email, "a@oakdental.com", "1", "x"))
	if !errors.Is(err, ErrInsecureAuth) {
		t.Errorf("expected ErrInsecureAuth, got %v", err)
	}
}

func TestTransportUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	p, _ := strconv.Atoi(port)

	tr := NewTransport("outreach.io", time.Second, nil)
	defer tr.Close()
	err = tr.Send(context.Background(), Account{Email: "sam@outreach.io", Host: host, Port: p}, NewMessage("Sam", "sam@outreach.io", "a@oakdental.com", "1", "x"))
	if !neterr.Is(err, neterr.ConnectionRefused) {
		t.Errorf("expected connection refused, got %v", err)
	}
}
