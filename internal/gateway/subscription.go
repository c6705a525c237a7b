package gateway

import (
	"sync"
	"sync/atomic"
)

// DefaultSubscriptionBuffer is the queue depth used when a caller passes zero.
const DefaultSubscriptionBuffer = 64

// Subscription is a cancellable, single-consumer event queue. Events that
// arrive while the queue is full are dropped and counted.
type Subscription[T any] struct {
	events  chan T
	dropped atomic.Int64
	once    sync.Once
	cancel  func()
}

// Events returns the receive side of the queue. It is closed after Close.
func (s *Subscription[T]) Events() <-chan T { return s.events }

// Dropped returns how many events were discarded because the queue was full.
func (s *Subscription[T]) Dropped() int64 { return s.dropped.Load() }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
}

type subscriber[T any] struct {
	sub   *Subscription[T]
	match func(T) bool
}

// fanout delivers published events to every matching subscription without blocking.
type fanout[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]subscriber[T]
	onDrop func(T)
}

func (f *fanout[T]) subscribe(buffer int, match func(T) bool) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	sub := &Subscription[T]{events: make(chan T, buffer)}

	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[uint64]subscriber[T])
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = subscriber[T]{sub: sub, match: match}
	f.mu.Unlock()

	sub.cancel = func() {
		f.mu.Lock()
		delete(f.subs, id)
		close(sub.events)
		f.mu.Unlock()
	}
	return sub
}

func (f *fanout[T]) publish(ev T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.match != nil && !s.match(ev) {
			continue
		}
		select {
		case s.sub.events <- ev:
		default:
			s.sub.dropped.Add(1)
			if f.onDrop != nil {
				f.onDrop(ev)
			}
		}
	}
}

func (f *fanout[T]) closeAll() {
	f.mu.Lock()
	subs := make([]*Subscription[T], 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s.sub)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (f *fanout[T]) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
