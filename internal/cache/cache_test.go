package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := New[int](time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 42)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheExpires(t *testing.T) {
	c := New[string](20 * time.Millisecond)
	c.Set("k", "v")

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTTLCacheGetOrLoad(t *testing.T) {
	c := New[int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return calls * 10, nil
	}

	v, err := c.GetOrLoad(KeyDashboardStats, load)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = c.GetOrLoad(KeyDashboardStats, load)
	require.NoError(t, err)
	assert.Equal(t, 10, v, "second call is served from cache")
	assert.Equal(t, 1, calls)

	c.Clear()
	v, err = c.GetOrLoad(KeyDashboardStats, load)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestTTLCacheGetOrLoadError(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok, "errors are not cached")
}

func TestTTLCacheGetOrLoadDropsResultInvalidatedMidLoad(t *testing.T) {
	c := New[int](time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan int)
	go func() {
		v, _ := c.GetOrLoad("k", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- v
	}()

	<-started
	c.Delete("k")
	close(release)
	assert.Equal(t, 1, <-done, "the caller still gets what it loaded")

	_, ok := c.Get("k")
	assert.False(t, ok, "a value loaded before Delete is not stored")

	v, err := c.GetOrLoad("k", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
