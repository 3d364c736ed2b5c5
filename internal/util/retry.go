// Package util holds small helpers shared by the RPC-facing packages.
package util

import (
	"context"
	"errors"
	"time"
)

// Backoff configures Retry. Max is the number of retries after the first
// call; the wait doubles from Base and is capped at Cap when Cap is set.
type Backoff struct {
	Max  int
	Base time.Duration
	Cap  time.Duration
}

func (b Backoff) wait(attempt int) time.Duration {
	d := b.Base * time.Duration(1<<attempt)
	if b.Cap > 0 && (d > b.Cap || d <= 0) {
		return b.Cap
	}
	return d
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the retry
// budget is spent or ctx is done. Use it for idempotent reads only.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	var err error
	for attempt := 0; attempt <= b.Max; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == b.Max {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.wait(attempt)):
		}
	}
	return err
}
