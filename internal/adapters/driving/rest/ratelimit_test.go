package rest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewClientLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := range 3 {
		ok, _ := l.Allow("1.2.3.4")
		assert.True(t, ok, "request %d", i)
	}

	ok, wait := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.InDelta(t, float64(20*time.Second), float64(wait), float64(time.Millisecond))

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "other clients have their own bucket")

	now = now.Add(21 * time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "one token refilled")
}

func TestClientLimiter_Prune(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewClientLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Clients())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Clients())
}

func TestClientLimiter_Disabled(t *testing.T) {
	l := NewClientLimiter(0, time.Minute)
	assert.False(t, l.Enabled())
	for range 10 {
		ok, _ := l.Allow("x")
		assert.True(t, ok)
	}
}
