package neterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/emersion/go-smtp"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"net timeout", timeoutErr{}, Timeout},
		{"url wrapping timeout", &url.Error{Op: "Get", URL: "https://a.com", Err: timeoutErr{}}, Timeout},
		{"refused", refused, ConnectionRefused},
		{"wrapped refused", fmt.Errorf("dialing: %w", refused), ConnectionRefused},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "a.invalid", IsNotFound: true}, DNSFailure},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "a.com", IsTimeout: true}, Timeout},
		{"smtp 550", &smtp.SMTPError{Code: 550, Message: "no such user"}, ProtocolRejection},
		{"http status", &StatusError{Code: 503}, HTTPStatus},
		{"tagged", &Error{Kind: DNSFailure, Err: errors.New("x")}, DNSFailure},
		{"plain", errors.New("boom"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapKeepsKind(t *testing.T) {
	err := Wrap("fetch", &StatusError{Code: 404})
	var ne *Error
	if !errors.As(err, &ne) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ne.Kind != HTTPStatus || ne.Op != "fetch" {
		t.Errorf("unexpected wrapped error: %+v", ne)
	}
	if Wrap("x", nil) != nil {
		t.Error("expected nil for nil error")
	}
	if again := Wrap("other", err); again != err {
		t.Error("expected already tagged error to pass through")
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), SendPolicy(nil), func(context.Context) error {
		calls++
		return &smtp.SMTPError{Code: 550}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt for a rejection, got %d", calls)
	}
}

func TestRetryReconnectsOnce(t *testing.T) {
	calls, reconnects := 0, 0
	refused := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}

	err := Retry(context.Background(), SendPolicy(func(context.Context) error {
		reconnects++
		return nil
	}), func(context.Context) error {
		calls++
		if calls == 1 {
			return refused
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on second attempt: %v", err)
	}
	if calls != 2 || reconnects != 1 {
		t.Errorf("expected 2 calls and 1 reconnect, got %d and %d", calls, reconnects)
	}
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), SendPolicy(nil), func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !Is(err, Timeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryReconnectFailureAborts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), SendPolicy(func(context.Context) error {
		return errors.New("auth failed")
	}), func(context.Context) error {
		calls++
		return timeoutErr{}
	})
	if err == nil || calls != 1 {
		t.Errorf("expected abort after failed reconnect, calls=%d err=%v", calls, err)
	}
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Retry(ctx, Policy{Attempts: 3}, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("expected cancellation before first attempt, called=%v err=%v", called, err)
	}
}
