package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleep(t *testing.T) {
	t.Run("full delay elapses", func(t *testing.T) {
		start := time.Now()
		assert.True(t, Sleep(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancellation cuts the wait short", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(5*time.Millisecond, cancel)
		start := time.Now()
		assert.False(t, Sleep(ctx, time.Hour))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("zero delay reports context state", func(t *testing.T) {
		assert.True(t, Sleep(context.Background(), 0))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, Sleep(ctx, 0))
	})
}
