package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	l := New(time.Minute, 3)
	defer l.Close()

	start := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("1.2.3.4", start.Add(time.Duration(i)*time.Second))
		assert.True(t, ok, "hit %d", i+1)
	}

	ok, retryAfter := l.Allow("1.2.3.4", start.Add(20*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retryAfter)

	// other keys have their own counter
	ok, _ = l.Allow("5.6.7.8", start.Add(20*time.Second))
	assert.True(t, ok)

	// a new window starts once the previous one elapsed
	ok, _ = l.Allow("1.2.3.4", start.Add(time.Minute))
	assert.True(t, ok)
}

func TestLimiterSweep(t *testing.T) {
	l := New(time.Minute, 1)
	defer l.Close()

	now := time.Now()
	l.Allow("a", now)
	l.Allow("b", now.Add(30*time.Second))
	assert.Equal(t, 2, l.Len())

	l.Sweep(now.Add(time.Minute))
	assert.Equal(t, 1, l.Len())

	l.Sweep(now.Add(2 * time.Minute))
	assert.Equal(t, 0, l.Len())
}

func TestLimiterReset(t *testing.T) {
	l := New(time.Minute, 1)
	defer l.Close()

	now := time.Now()
	ok, _ := l.Allow("a", now)
	assert.True(t, ok)
	ok, _ = l.Allow("a", now)
	assert.False(t, ok)

	l.Reset("a")
	ok, _ = l.Allow("a", now)
	assert.True(t, ok)
}
