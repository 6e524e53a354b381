package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Message is a plain-text email ready for submission.
type Message struct {
	FromName string
	From     string
	To       string
	Subject  string
	Body     string
	// ID is the Message-ID without angle brackets.
	ID string
}

// NewMessage builds a message with a fresh Message-ID on the sender's domain.
func NewMessage(fromName, from, to, subject, body string) *Message {
	return &Message{
		FromName: fromName,
		From:     from,
		To:       to,
		Subject:  subject,
		Body:     body,
		ID:       uuid.NewString() + "@" + domainOf(from),
	}
}

// Bytes renders the message as RFC 5322 text, dated now.
func (m *Message) Bytes(now time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{{Name: m.FromName, Address: m.From}})
	h.SetAddressList("To", []*gomail.Address{{Address: m.To}})
	h.SetSubject(m.Subject)
	if m.ID != "" {
		h.SetMessageID(m.ID)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, fmt.Errorf("writing body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message: %w", err)
	}
	return buf.Bytes(), nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return strings.ToLower(addr[i+1:])
	}
	return "localhost"
}
