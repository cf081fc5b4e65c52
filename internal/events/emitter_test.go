package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Deliver(ctx context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func closeEmitter(t *testing.T, e *Emitter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestEmitterDeliversInOrder(t *testing.T) {
	sink := &memorySink{}
	e := NewEmitter(8, sink)

	e.Emit(Success(ActionSessionCreated, "one"))
	e.Emit(Event{Message: "two"})
	closeEmitter(t, e)

	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2", len(got))
	}
	if got[0].Message != "one" || got[1].Message != "two" {
		t.Errorf("order = %q, %q", got[0].Message, got[1].Message)
	}
	if got[1].Action != ActionUnknown || got[1].Type != TypeInfo || got[1].OccurredAt.IsZero() {
		t.Errorf("defaults not applied: %+v", got[1])
	}
	if s := e.Stats(); s.Emitted != 2 || s.Delivered != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestEmitterCountsFailuresWithoutSurfacingThem(t *testing.T) {
	sink := &memorySink{err: errors.New("store down")}
	e := NewEmitter(4, sink)
	e.Emit(Info("x", "y"))
	closeEmitter(t, e)

	if s := e.Stats(); s.Failed != 1 || s.Delivered != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	e := NewEmitter(1, sink)

	// first event is picked up by the worker and blocks; the rest fill and
	// overflow the buffer
	for i := 0; i < 10; i++ {
		e.Emit(Info("x", "y"))
	}
	close(sink.block)
	closeEmitter(t, e)

	s := e.Stats()
	if s.Dropped == 0 {
		t.Errorf("expected drops, got %+v", s)
	}
	if s.Emitted+s.Dropped != 10 {
		t.Errorf("emitted+dropped = %d, want 10", s.Emitted+s.Dropped)
	}
}

func TestEmitAfterCloseAndNilEmitter(t *testing.T) {
	var nilEmitter *Emitter
	nilEmitter.Emit(Info("x", "y"))

	e := NewEmitter(1)
	closeEmitter(t, e)
	e.Emit(Info("x", "y"))
	if s := e.Stats(); s.Dropped != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

type capturePublisher struct {
	queue string
	body  []byte
}

func (p *capturePublisher) Publish(_ context.Context, queue string, body []byte) error {
	p.queue, p.body = queue, body
	return nil
}

func TestBrokerSinkPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	uid := uint(7)
	ev := Success(ActionLogin, "signed in").ForActor(&uid, "v-1").With("username", "ada")

	if err := NewBrokerSink(pub, "quiz.events").Deliver(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if pub.queue != "quiz.events" {
		t.Errorf("queue = %q", pub.queue)
	}
	var got map[string]any
	if err := json.Unmarshal(pub.body, &got); err != nil {
		t.Fatal(err)
	}
	if got["actor_type"] != ActorUser || got["actor_id"] != "7" || got["visitor_uuid"] != "v-1" {
		t.Errorf("body = %s", pub.body)
	}
}

func TestWithDoesNotShareMaps(t *testing.T) {
	base := Info("x", "y").With("a", 1)
	a := base.With("b", 2)
	b := base.With("c", 3)
	if _, ok := a.Details["c"]; ok {
		t.Error("details leaked between copies")
	}
	if len(b.Details) != 2 {
		t.Errorf("b.Details = %v", b.Details)
	}
}
