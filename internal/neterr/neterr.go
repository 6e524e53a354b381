// Package neterr classifies network failures into a small set of kinds and
// applies one retry policy at call boundaries.
package neterr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"syscall"

	"github.com/emersion/go-smtp"
)

// Kind is the class of a network failure.
type Kind int

const (
	Unknown Kind = iota
	Timeout
	ConnectionRefused
	DNSFailure
	ProtocolRejection
	HTTPStatus
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ConnectionRefused:
		return "connection_refused"
	case DNSFailure:
		return "dns_failure"
	case ProtocolRejection:
		return "protocol_rejection"
	case HTTPStatus:
		return "http_status"
	}
	return "unknown"
}

// Error is a network failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError reports an HTTP response with status >= 400.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// Wrap tags err with op and its classified Kind. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne *Error
	if errors.As(err, &ne) {
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// Classify maps net, url, DNS, HTTP status and SMTP errors to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	var status *StatusError
	if errors.As(err, &status) {
		return HTTPStatus
	}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return ProtocolRejection
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return ProtocolRejection
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return Timeout
		}
		return DNSFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	// Refused, reset and dropped connections are all fixed by reconnecting.
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return ConnectionRefused
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ConnectionRefused
	}

	return Unknown
}

// KindOf is Classify for callers that branch on a kind.
func KindOf(err error) Kind {
	return Classify(err)
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return err != nil && Classify(err) == k
}
