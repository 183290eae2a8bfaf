package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// MinTickTimeout is the floor applied to every tick deadline.
const MinTickTimeout = 5 * time.Second

// TickFunc runs one unit of work. ctx carries the tick deadline.
type TickFunc func(ctx context.Context, now time.Time) error

// Loop runs Tick once immediately and then every Interval until the parent
// context is cancelled. A tick is never cancelled by the stop signal, only by
// its own Timeout, and ticks never overlap.
type Loop struct {
	Interval time.Duration
	Timeout  time.Duration
	Tick     TickFunc
	// OnPanic is called from the recovering defer, so the stack is still intact.
	OnPanic func(ctx context.Context, recovered interface{})
	Now     func() time.Time
	Log     *logrus.Entry
}

// TickTimeout is interval minus five seconds, never below MinTickTimeout.
func TickTimeout(interval time.Duration) time.Duration {
	t := interval - 5*time.Second
	if t < MinTickTimeout {
		t = MinTickTimeout
	}
	return t
}

func StartLoop(ctx context.Context, l Loop) error {
	if l.Tick == nil {
		return errors.New("loop tick not set")
	}
	if l.Interval <= 0 {
		return fmt.Errorf("invalid loop interval %s", l.Interval)
	}
	if l.Timeout <= 0 {
		l.Timeout = TickTimeout(l.Interval)
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.Log == nil {
		l.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	ticker := time.NewTicker(l.Interval) // Set up a ticker that fires periodically
	defer ticker.Stop()

	l.Log.WithFields(map[string]interface{}{
		"interval": l.Interval.String(),
		"timeout":  l.Timeout.String(),
	}).Info("loop started")

	l.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			l.Log.Info("loop stopped")
			return nil

		case <-ticker.C:
			if ctx.Err() != nil {
				l.Log.Info("loop stopped")
				return nil
			}
			l.runTick(ctx)
		}
	}
}

func (l *Loop) runTick(parent context.Context) {
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), l.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l.Log.WithField("panic", r).Error("loop tick panicked")
			if l.OnPanic != nil {
				l.OnPanic(tickCtx, r)
			}
		}
	}()

	started := l.Now()
	err := l.Tick(tickCtx, started)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(tickCtx.Err(), context.DeadlineExceeded):
		l.Log.WithFields(map[string]interface{}{
			"timeout": l.Timeout.String(),
			"elapsed": time.Since(started).String(),
		}).Warn("loop tick timed out")
	case err != nil:
		l.Log.WithError(err).Error("loop tick failed")
	default:
		l.Log.WithField("elapsed", time.Since(started).String()).Debug("loop tick done")
	}
}
