// Package poll waits for conditions on the host, such as a VM reaching a
// state or a switch appearing, with exponential backoff between checks.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
)

// ErrTimeout is returned by Until when the condition did not hold before the
// timeout elapsed.
var ErrTimeout = fmt.Errorf("timed out waiting for condition: %w", context.DeadlineExceeded)

var errNotMet = errors.New("condition not met")

const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultMaxInterval = 10 * time.Second
)

// Condition reports whether the awaited state has been reached. A non-nil
// error stops polling.
type Condition func(ctx context.Context) (bool, error)

type config struct {
	interval    time.Duration
	maxInterval time.Duration
}

// Opt configures Until.
type Opt func(*config)

// WithInterval sets the first and the largest delay between checks.
func WithInterval(initial, max time.Duration) Opt {
	return func(c *config) {
		c.interval = initial
		c.maxInterval = max
	}
}

func newBackOff(timeout time.Duration, c config) backoff.BackOff {
	if timeout <= 0 {
		return &backoff.StopBackOff{}
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     c.interval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         c.maxInterval,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}

// Until evaluates cond until it returns true, returns an error, ctx is done
// or timeout elapses. A timeout of zero or less checks exactly once.
func Until(ctx context.Context, timeout time.Duration, cond Condition, opts ...Opt) error {
	c := config{interval: DefaultInterval, maxInterval: DefaultMaxInterval}
	for _, o := range opts {
		o(&c)
	}

	attempt := 0
	op := func() error {
		attempt++
		ok, err := cond(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotMet
		}
		return nil
	}
	notify := func(_ error, next time.Duration) {
		log.G(ctx).WithFields(logrus.Fields{
			logfields.Attempt: attempt,
			"next":            next,
		}).Trace("condition not met, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(newBackOff(timeout, c), ctx), notify)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotMet):
		return ErrTimeout
	default:
		return err
	}
}
