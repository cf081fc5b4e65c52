package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePurger struct {
	calls int
	at    time.Time
	err   error
}

func (f *fakePurger) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.calls++
	f.at = now
	return 3, f.err
}

type fakeEvicter struct {
	ttls []time.Duration
}

func (f *fakeEvicter) EvictIdle(ttl time.Duration) int {
	f.ttls = append(f.ttls, ttl)
	return 1
}

func TestPurgeTokens(t *testing.T) {
	fixed := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePurger{}
	c := &Cleaner{Tokens: p, Now: func() time.Time { return fixed }}

	c.PurgeTokens(context.Background())
	if p.calls != 1 || !p.at.Equal(fixed) {
		t.Errorf("calls = %d at %v", p.calls, p.at)
	}

	p.err = errors.New("db down")
	c.PurgeTokens(context.Background())
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}

	// no token store configured
	(&Cleaner{}).PurgeTokens(context.Background())
}

func TestEvictPlays(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want int
	}{
		{"positive ttl evicts", time.Hour, 1},
		{"zero ttl disables eviction", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEvicter{}
			(&Cleaner{Plays: e, PlayTTL: tt.ttl}).EvictPlays()
			if len(e.ttls) != tt.want {
				t.Errorf("evict calls = %d, want %d", len(e.ttls), tt.want)
			}
		})
	}
}

func TestStart(t *testing.T) {
	c := &Cleaner{Tokens: &fakePurger{}, Plays: &fakeEvicter{}, PlayTTL: time.Hour}
	cr, err := c.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer cr.Stop()
	if n := len(cr.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
}
