// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package reaper periodically removes expired login sessions so the
// sessions table does not grow without bound.
package reaper

import (
	"context"
	"time"

	"github.com/toeirei/ringwork/internal/logging"
)

// DefaultInterval is used when Start is given a non-positive interval.
const DefaultInterval = 5 * time.Minute

// ExpiredSessionStore deletes sessions past their expiry.
type ExpiredSessionStore interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Start launches a goroutine that sweeps store every interval until ctx is
// cancelled. The returned channel is closed once the goroutine has exited.
func Start(ctx context.Context, store ExpiredSessionStore, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				Sweep(ctx, store)
			}
		}
	}()
	return done
}

// Sweep runs a single cleanup pass. Failures are logged and retried on the
// next tick.
func Sweep(ctx context.Context, store ExpiredSessionStore) int64 {
	n, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warnf("session reaper: %v", err)
		}
		return 0
	}
	if n > 0 {
		logging.Debugf("session reaper removed %d expired sessions", n)
	}
	return n
}
