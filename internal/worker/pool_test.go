package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/internal/worker"
)

func TestPool_DoDevuelveResultado(t *testing.T) {
	p := worker.NewPool(2, zerolog.Nop())
	p.Start(context.Background())
	defer p.Stop()

	v, err := p.Do(context.Background(), "suma", func(ctx context.Context) (any, error) {
		return 40 + 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = p.Do(context.Background(), "falla", func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestPool_RecuperaPanic(t *testing.T) {
	p := worker.NewPool(1, zerolog.Nop())
	p.Start(context.Background())
	defer p.Stop()

	_, err := p.Do(context.Background(), "panico", func(ctx context.Context) (any, error) {
		panic("algo salió mal")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panico")

	v, err := p.Do(context.Background(), "sigue", func(ctx context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v, "el worker sigue vivo después del panic")
}

// ─────────────────────────────────────────────────────────────────────────────
// Nunca corren más trabajos a la vez que workers tiene el pool.
// ─────────────────────────────────────────────────────────────────────────────
func TestPool_LimitaConcurrencia(t *testing.T) {
	const size = 3
	p := worker.NewPool(size, zerolog.Nop())
	p.Start(context.Background())
	defer p.Stop()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Do(context.Background(), "lento", func(ctx context.Context) (any, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(size))
	assert.Positive(t, peak.Load())
}

func TestPool_ContextoCanceladoNoEjecuta(t *testing.T) {
	p := worker.NewPool(1, zerolog.Nop())
	p.Start(context.Background())
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, err := p.Do(ctx, "cancelado", func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestPool_DetenidoRechazaTrabajos(t *testing.T) {
	p := worker.NewPool(1, zerolog.Nop())
	p.Start(context.Background())
	p.Stop()
	p.Stop()

	_, err := p.Do(context.Background(), "tarde", func(ctx context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, worker.ErrPoolStopped)
}
