// Package worker ejecuta fuera del goroutine del handler HTTP las operaciones lentas
// (carga y cierre de conciliaciones) con un número acotado de goroutines.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPoolStopped se devuelve al enviar trabajo a un pool detenido.
var ErrPoolStopped = errors.New("worker pool detenido")

// Job trabajo genérico; el resultado se entrega por el canal de Submit.
type Job func(ctx context.Context) (any, error)

// Result resultado de un Job.
type Result struct {
	Value any
	Err   error
}

type task struct {
	name string
	ctx  context.Context
	job  Job
	out  chan Result
}

// Pool número fijo de goroutines consumiendo una cola en memoria.
type Pool struct {
	size  int
	queue chan task
	log   zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool construye un pool de size workers. size <= 0 usa 4.
func NewPool(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{
		size:  size,
		queue: make(chan task, size*4),
		log:   log.With().Str("component", "worker").Logger(),
	}
}

// Start lanza los workers. Terminan cuando ctx se cancela o se llama a Stop.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.Info().Int("workers", p.size).Msg("worker pool iniciado")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Int("worker", id).Msg("worker detenido")
			p.drain()
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(id, t)
		}
	}
}

// drain responde a los trabajos encolados que ya no se van a ejecutar.
func (p *Pool) drain() {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			t.out <- Result{Err: ErrPoolStopped}
			close(t.out)
		default:
			return
		}
	}
}

func (p *Pool) process(id int, t task) {
	defer close(t.out)
	if err := t.ctx.Err(); err != nil {
		t.out <- Result{Err: err}
		return
	}
	start := time.Now()
	var res Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Str("job", t.name).Msg("panic en trabajo")
				res = Result{Err: errors.New("panic en trabajo " + t.name)}
			}
		}()
		res.Value, res.Err = t.job(t.ctx)
	}()
	ev := p.log.Debug()
	if res.Err != nil {
		ev = p.log.Warn().Err(res.Err)
	}
	ev.Int("worker", id).Str("job", t.name).Dur("duracion", time.Since(start)).Msg("trabajo procesado")
	t.out <- res
}

// Submit encola un trabajo. El canal devuelto recibe exactamente un Result y se cierra.
func (p *Pool) Submit(ctx context.Context, name string, job Job) <-chan Result {
	out := make(chan Result, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		out <- Result{Err: ErrPoolStopped}
		close(out)
		return out
	}
	select {
	case p.queue <- task{name: name, ctx: ctx, job: job, out: out}:
	case <-ctx.Done():
		out <- Result{Err: ctx.Err()}
		close(out)
	}
	return out
}

// Do encola y espera el resultado.
func (p *Pool) Do(ctx context.Context, name string, job Job) (any, error) {
	res := <-p.Submit(ctx, name, job)
	return res.Value, res.Err
}

// Stop deja de aceptar trabajos, espera a que se vacíe la cola y a que terminen los workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Info().Msg("worker pool detenido")
}
