package retry

import (
	"errors"
	"log/slog"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
)

// Policy retries a single protocol operation with linear backoff: the failure
// of attempt k waits BaseDelay*k before attempt k+1. Chosen over exponential
// backoff for predictable total wait under typical IMAP recovery times.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger

	// Sleep is replaceable in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Do runs fn until it succeeds, fails with a terminal error, or MaxAttempts is
// exhausted. The last error is returned to the caller on exhaustion.
func (p Policy) Do(op string, fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !Transient(err) {
			return err
		}
		if p.Logger != nil {
			p.Logger.Warn("operation failed",
				"op", op, "attempt", attempt, "maxAttempts", p.MaxAttempts, "err", err)
		}
		if attempt < p.MaxAttempts {
			sleep(p.BaseDelay * time.Duration(attempt))
		}
	}
	return lastErr
}

// Transient reports whether err looks like a dead session rather than a tagged
// server response. A NO/BAD status (e.g. "mailbox does not exist") is terminal
// and must not be retried; anything else is assumed to be a transport failure.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var respErr *imapv2.Error
	return !errors.As(err, &respErr)
}
