package rate

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	resetTime time.Time
}

// MemoryLimiter: ventana fija sobre un map process-local con mutex.
// Sin garantía de consistencia entre procesos; limitación documentada,
// no bug (para eso está el RedisLimiter).
//
// El incremento y la comparación ocurren bajo el mismo lock, sin puntos
// de suspensión en el medio: el chequeo es atómico también en runtime
// multi-hilo.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	// now es inyectable para tests.
	now func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Allow registra un hit y decide. Primer request de una key, o ventana
// vencida: reset atómico a count=1.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.clock()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetTime) {
		e = &entry{count: 1, resetTime: now.Add(l.Window)}
		l.entries[key] = e
	} else {
		e.count++
	}
	hits := e.count
	reset := e.resetTime
	l.mu.Unlock()

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   reset.Sub(now),
	}
	if !allowed {
		res.RetryAfter = reset.Sub(now)
	}
	return res, nil
}

// Clear resetea el contador de la key.
func (l *MemoryLimiter) Clear(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
	return nil
}

// Cleanup elimina entradas con ventana vencida. Llamar periódicamente
// para acotar memoria.
func (l *MemoryLimiter) Cleanup() {
	now := l.clock()
	l.mu.Lock()
	for k, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, k)
		}
	}
	l.mu.Unlock()
}

// AuthFailures envuelve un limiter con umbral más estricto, dedicado a
// intentos de login fallidos.
type AuthFailures struct {
	inner Limiter
}

func NewAuthFailures(max int, window time.Duration) *AuthFailures {
	return &AuthFailures{inner: NewMemoryLimiter(max, window)}
}

// Record registra un fallo de autenticación; Allowed=false significa
// que el identificador quedó bloqueado para esta ventana.
func (a *AuthFailures) Record(ctx context.Context, identifier string) (Result, error) {
	return a.inner.Allow(ctx, identifier)
}

// Clear limpia los fallos acumulados (login exitoso u override).
func (a *AuthFailures) Clear(ctx context.Context, identifier string) error {
	return a.inner.Clear(ctx, identifier)
}
