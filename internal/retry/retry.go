// Package retry wraps calls to external collaborators with bounded
// exponential backoff. Only transient failures are retried; logical errors
// (bad metadata, conflicts, 4xx responses) stop immediately.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxElapsed = 30 * time.Second

// Transienter is implemented by error types that know whether they are
// worth retrying (e.g. an API error carrying an HTTP status code).
type Transienter interface {
	Transient() bool
}

// New returns the backoff used around collaborator calls.
// BackOff implementations are stateful; always return a fresh instance.
func New() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	return bo
}

// Do runs op, retrying transient failures until the backoff gives up or
// ctx is cancelled.
func Do(ctx context.Context, op func() error) error {
	return DoWith(ctx, New(), op)
}

// DoWith is Do with a caller-supplied backoff. Tests use it to avoid
// waiting out real backoff intervals.
func DoWith(ctx context.Context, bo backoff.BackOff, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if Transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// Transient reports whether err is a transient network or server failure.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var tr Transienter
	if errors.As(err, &tr) {
		return tr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") {
		return true
	}
	if strings.Contains(errStr, "connection reset") {
		return true
	}
	if strings.Contains(errStr, "broken pipe") {
		return true
	}
	if strings.Contains(errStr, "i/o timeout") {
		return true
	}
	if strings.Contains(errStr, "unexpected eof") {
		return true
	}
	return false
}
