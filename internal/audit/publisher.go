package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher appends governance events to the audit trail. With a buffer it
// persists in the background; a full buffer falls back to a synchronous
// write so the trail never loses an event.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	queue   chan Event
	closed  bool
	drained sync.WaitGroup
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events for background persistence.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.drained.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.drained.Done()
	for ev := range p.queue {
		// The request context is gone by now; background writes are unbounded.
		if err := p.store.Append(context.Background(), ev); err != nil && p.logger != nil {
			p.logger.Error("audit append failed",
				"error", err,
				"action", ev.Action,
				"request_id", ev.RequestID,
			)
		}
	}
}

// Emit stamps and records the event. Queued events report no error; the
// drain goroutine logs failures instead.
func (p *Publisher) Emit(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now()
	}

	p.mu.RLock()
	if p.queue != nil && !p.closed {
		select {
		case p.queue <- ev:
			p.mu.RUnlock()
			return nil
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit buffer full, writing inline", "action", ev.Action)
			}
		}
	}
	p.mu.RUnlock()
	return p.store.Append(ctx, ev)
}

// Close flushes queued events. Later Emits write synchronously.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.queue == nil || p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.drained.Wait()
}

// List returns the subject's audit trail, oldest first.
func (p *Publisher) List(ctx context.Context, subjectID string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}
