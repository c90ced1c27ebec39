package pacer

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval - провайдер разрешает 1 запрос в секунду
const DefaultMinInterval = time.Second

type Config struct {
	MinInterval time.Duration

	// OnWait вызывается после получения допуска, с общим временем ожидания
	OnWait func(wait time.Duration)
}

// Pacer - FIFO-шлюз, который разносит старты операций минимум на MinInterval.
// Следующий отсчет начинается после завершения текущей операции.
type Pacer struct {
	mu       sync.Mutex
	busy     bool
	waiters  []chan struct{}
	next     time.Time
	admitted int64

	interval time.Duration
	onWait   func(time.Duration)
}

type Stats struct {
	Admitted    int64
	NextAllowed time.Time
}

func New(cfg Config) *Pacer {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}

	return &Pacer{
		next:     time.Now(),
		interval: interval,
		onWait:   cfg.OnWait,
	}
}

func (p *Pacer) MinInterval() time.Duration {
	return p.interval
}

// Pace ждет своей очереди и интервала, затем выполняет op.
// Ошибка op возвращается как есть; слот при этом все равно расходуется.
// ctx учитывается только пока вызывающий стоит в очереди.
func (p *Pacer) Pace(ctx context.Context, op func(ctx context.Context) error) error {
	start := time.Now()

	if err := p.acquire(ctx); err != nil {
		return err
	}

	if err := p.waitDeadline(ctx); err != nil {
		p.release()
		return err
	}

	if p.onWait != nil {
		p.onWait(time.Since(start))
	}

	defer func() {
		p.mu.Lock()
		p.admitted++
		if nx := time.Now().Add(p.interval); nx.After(p.next) {
			p.next = nx
		}
		p.mu.Unlock()
		p.release()
	}()

	return op(ctx)
}

// Do - типизированная обертка над Pace
func Do[T any](ctx context.Context, p *Pacer, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Pace(ctx, func(ctx context.Context) error {
		var err error
		out, err = op(ctx)
		return err
	})
	return out, err
}

func (p *Pacer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Admitted: p.admitted, NextAllowed: p.next}
}

// acquire - занимаем шлюз или встаем в хвост очереди.
// Новый вызывающий не может обогнать тех, кто уже ждет.
func (p *Pacer) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if !p.busy && len(p.waiters) == 0 {
		p.busy = true
		p.mu.Unlock()
		return nil
	}

	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return ctx.Err()
		}
	}
	p.mu.Unlock()

	// шлюз уже передали нам, отдаем следующему
	p.release()
	return ctx.Err()
}

// release передает шлюз первому в очереди без промежуточного освобождения
func (p *Pacer) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.waiters) == 0 {
		p.busy = false
		return
	}

	ch := p.waiters[0]
	p.waiters[0] = nil
	p.waiters = p.waiters[1:]
	close(ch)
}

func (p *Pacer) waitDeadline(ctx context.Context) error {
	for {
		p.mu.Lock()
		wait := time.Until(p.next)
		p.mu.Unlock()

		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// перепроверяем на следующей итерации
		}
	}
}
