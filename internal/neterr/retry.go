package neterr

import (
	"context"
	"fmt"
)

// Policy bounds how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Retryable lists the kinds that may be retried. Anything else fails at once.
	Retryable []Kind
	// Between runs before each retry. A failing hook ends the retry loop.
	Between func(ctx context.Context, attempt int, lastErr error) error
}

func (p Policy) retryable(k Kind) bool {
	for _, r := range p.Retryable {
		if r == k {
			return true
		}
	}
	return false
}

// SendPolicy is the policy for outbound mail: two attempts, retrying dropped
// or timed-out connections after reconnect has run.
func SendPolicy(reconnect func(ctx context.Context) error) Policy {
	return Policy{
		Attempts:  2,
		Retryable: []Kind{ConnectionRefused, Timeout},
		Between: func(ctx context.Context, _ int, _ error) error {
			if reconnect == nil {
				return nil
			}
			return reconnect(ctx)
		},
	}
}

// Retry runs op under p and returns the last error.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.Between != nil {
				if hookErr := p.Between(ctx, attempt, err); hookErr != nil {
					return fmt.Errorf("%w (retry aborted: %v)", err, hookErr)
				}
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !p.retryable(Classify(err)) {
			return err
		}
	}
	return err
}
