package monitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenCache_SeenOrAdd(t *testing.T) {
	c := NewSeenCache(10)

	assert.False(t, c.SeenOrAdd("h1"))
	assert.True(t, c.SeenOrAdd("h1"))
	assert.Equal(t, 1, c.Len())
}

func TestSeenCache_EvictsOldestHalfOnOverflow(t *testing.T) {
	c := NewSeenCache(DefaultSeenCapacity)

	for i := 0; i < 1000; i++ {
		require.False(t, c.SeenOrAdd(fmt.Sprintf("h%d", i)))
	}
	assert.Equal(t, 1000, c.Len())

	c.SeenOrAdd("h1000")

	assert.Equal(t, 501, c.Len())
	assert.LessOrEqual(t, c.Len(), DefaultSeenCapacity)
	for i := 0; i < 500; i++ {
		assert.False(t, c.Contains(fmt.Sprintf("h%d", i)), "h%d should be evicted", i)
	}
	for i := 500; i <= 1000; i++ {
		assert.True(t, c.Contains(fmt.Sprintf("h%d", i)), "h%d should be kept", i)
	}
}

func TestSeenCache_EvictionIsInsertionOrder(t *testing.T) {
	c := NewSeenCache(4)
	c.SeenOrAdd("a")
	c.SeenOrAdd("b")
	c.SeenOrAdd("c")
	c.SeenOrAdd("d")

	// re-checking a does not refresh it
	assert.True(t, c.SeenOrAdd("a"))
	c.SeenOrAdd("e")

	assert.False(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.Equal(t, []string{"c", "d", "e"}, c.Snapshot())
}

func TestSeenCache_Restore(t *testing.T) {
	c := NewSeenCache(4)
	c.SeenOrAdd("stale")

	c.Restore([]string{"a", "b", "a", "", "c"})

	assert.Equal(t, []string{"a", "b", "c"}, c.Snapshot())
	assert.False(t, c.Contains("stale"))
}
