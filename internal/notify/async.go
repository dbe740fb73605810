package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"food-order-service/internal/sharding"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notifier closed")
)

type job struct {
	topic string
	event Event
}

// Async decouples callers from transport latency: Publish only enqueues and
// workers hand events to the wrapped publisher. Events for one topic always
// go to the same worker and keep their order.
type Async struct {
	next    Publisher
	queues  []chan job
	router  *sharding.ShardRouter
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewAsync starts workers goroutines, each with a queue of buffer events.
func NewAsync(next Publisher, buffer, workers int, timeout time.Duration) *Async {
	router := sharding.NewShardRouter(workers)
	a := &Async{
		next:    next,
		queues:  make([]chan job, router.ShardCount),
		router:  router,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	for i := range a.queues {
		a.queues[i] = make(chan job, buffer)
		a.wg.Add(1)
		go a.run(a.queues[i])
	}
	go func() {
		a.wg.Wait()
		close(a.done)
	}()
	return a
}

func (a *Async) Publish(_ context.Context, topic string, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queues[a.router.GetShard(topic)] <- job{topic: topic, event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run(queue <-chan job) {
	defer a.wg.Done()
	for j := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Publish(ctx, j.topic, j.event)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("topic", j.topic).Str("event", j.event.Type).Msg("notification dropped")
		}
	}
}

// Close stops accepting events and waits for queued ones until ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		for _, q := range a.queues {
			close(q)
		}
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
