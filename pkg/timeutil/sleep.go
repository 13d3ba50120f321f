// Package timeutil holds small timing helpers shared by the workers.
package timeutil

import (
	"context"
	"time"
)

// Sleep waits d or until ctx is done, reporting whether the full delay
// elapsed. A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
