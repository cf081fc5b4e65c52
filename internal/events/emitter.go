package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const deliverTimeout = 5 * time.Second

// Sink receives events from the emitter's delivery goroutine.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Stats struct {
	Emitted   int64 `json:"emitted"`
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
}

// Emitter delivers events to its sinks in the background. Emit never blocks
// the caller: when the buffer is full the event is dropped and counted, and
// sink failures are logged and counted but never reported back.
type Emitter struct {
	sinks []Sink
	ch    chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	emitted   atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewEmitter(buffer int, sinks ...Sink) *Emitter {
	if buffer < 1 {
		buffer = 1
	}
	e := &Emitter{
		sinks: sinks,
		ch:    make(chan Event, buffer),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues ev for delivery. It is safe to call on a nil Emitter and after
// Close; in both cases the event is discarded.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropped.Add(1)
		return
	}
	select {
	case e.ch <- ev.Normalize():
		e.emitted.Add(1)
	default:
		e.dropped.Add(1)
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain events: %w", ctx.Err())
	}
}

func (e *Emitter) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return Stats{
		Emitted:   e.emitted.Load(),
		Delivered: e.delivered.Load(),
		Dropped:   e.dropped.Load(),
		Failed:    e.failed.Load(),
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for ev := range e.ch {
		ok := true
		for _, s := range e.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			err := s.Deliver(ctx, ev)
			cancel()
			if err != nil {
				ok = false
				e.failed.Add(1)
				log.Printf("[WARN] events: %s sink failed for %s: %v", s.Name(), ev.Action, err)
			}
		}
		if ok {
			e.delivered.Add(1)
		}
	}
}

// Publisher is the broker client used by BrokerSink.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// BrokerSink publishes each event as JSON to a queue.
type BrokerSink struct {
	pub   Publisher
	queue string
}

func NewBrokerSink(pub Publisher, queue string) *BrokerSink {
	return &BrokerSink{pub: pub, queue: queue}
}

func (s *BrokerSink) Name() string { return "broker:" + s.queue }

func (s *BrokerSink) Deliver(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.pub.Publish(ctx, s.queue, body)
}
