package capture

import (
	"context"
	"time"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/sirupsen/logrus"
)

// Policy bounds retries of a browser-channel operation.
type Policy struct {
	Attempts  int
	Delay     time.Duration
	SessionID string
}

// DefaultPolicy tries three times, half a second apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 500 * time.Millisecond}
}

// Retry runs fn until it succeeds or the policy is exhausted. Errors that
// carry a non-transient recorder code are returned at once. After the last
// attempt the failure escalates to SESSION_FAILED.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	logger := logging.NewLogger("capture")

	var last error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if code := errors.GetCode(last); code != "" && !errors.Retryable(last) {
			return last
		}
		logger.WithError(last).WithFields(logrus.Fields{
			"attempt":  attempt,
			"attempts": p.Attempts,
		}).Debug("Browser channel call failed")

		if attempt == p.Attempts {
			break
		}
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return errors.SessionFailed(p.SessionID, last).WithDetail("attempts", p.Attempts)
}
