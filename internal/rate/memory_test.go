package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Boundary(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(5, time.Minute)

	// los primeros max requests pasan
	for i := 1; i <= 5; i++ {
		res, err := l.Allow(ctx, "cliente-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, int64(5-i), res.Remaining)
	}

	// el (max+1)-ésimo se rechaza con RetryAfter
	res, err := l.Allow(ctx, "cliente-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// otra key no se ve afectada
	res, err = l.Allow(ctx, "cliente-2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, _ := l.Allow(ctx, "k")
		assert.True(t, res.Allowed)
	}
	res, _ := l.Allow(ctx, "k")
	assert.False(t, res.Allowed)

	// pasada la ventana, reset atómico a count=1 y la secuencia se repite
	now = base.Add(61 * time.Second)
	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.CurrentHits)
}

func TestMemoryLimiter_Clear(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Minute)

	res, _ := l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "k")
	assert.False(t, res.Allowed)

	require.NoError(t, l.Clear(ctx, "k"))
	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "hot")
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	// exactamente max pasan, sin carreras
	assert.Equal(t, 100, allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	now := base
	l := NewMemoryLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	now = base.Add(2 * time.Minute)
	l.Cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestAuthFailures_StricterThreshold(t *testing.T) {
	ctx := context.Background()
	af := NewAuthFailures(3, 15*time.Minute)

	for i := 0; i < 3; i++ {
		res, err := af.Record(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := af.Record(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, af.Clear(ctx, "ana@example.com"))
	res, _ = af.Record(ctx, "ana@example.com")
	assert.True(t, res.Allowed)
}
