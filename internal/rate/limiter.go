// Package rate implementa rate limiting de ventana fija.
//
// Contrato de borde: el request número max dentro de la ventana se
// permite; el (max+1)-ésimo se rechaza. Los resets de ventana son
// monotónicos en wall-clock.
package rate

import (
	"context"
	"time"
)

// Result contiene el resultado de una consulta al limiter.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter define la interfaz mínima de un rate limiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)

	// Clear resetea el contador de una key (override de admin o fin
	// legítimo de una ventana limitada).
	Clear(ctx context.Context, key string) error
}
