package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds how many times an outbound call is attempted and how long
// to wait between attempts.
type Policy struct {
	Attempts int
	Base     time.Duration
	Ceiling  time.Duration
	Factor   float64
}

// NewPolicy doubles from 250ms up to 5s. Attempts below one become one.
func NewPolicy(attempts int) Policy {
	return Policy{
		Attempts: max(attempts, 1),
		Base:     250 * time.Millisecond,
		Ceiling:  5 * time.Second,
		Factor:   2,
	}
}

// Delay is the pause after the n-th failed attempt, counting from zero.
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.Base)
	for range n {
		d *= p.Factor
		if d >= float64(p.Ceiling) {
			return p.Ceiling
		}
	}
	return min(time.Duration(d), p.Ceiling)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth another attempt (bad request, missing credentials).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a Permanent error, the policy runs
// out of attempts, or ctx ends.
func Do[T any](ctx context.Context, p Policy, log *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)

	var err error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			wait := p.Delay(n - 1)
			log.Warn("retrying after failure",
				slog.String("operation", op),
				slog.Int("attempt", n+1),
				slog.Int("of", attempts),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()),
			)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			case <-t.C:
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var out T
		out, err = fn(ctx)
		switch {
		case err == nil:
			return out, nil
		case IsPermanent(err):
			return zero, err
		}
	}
	return zero, fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, err)
}
