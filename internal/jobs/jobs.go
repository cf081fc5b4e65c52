package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	purgeSchedule = "@hourly"
	evictSchedule = "@every 5m"
	purgeTimeout  = time.Minute
)

type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type PlayEvicter interface {
	EvictIdle(ttl time.Duration) int
}

// Cleaner drops expired token revocations and idle in-memory plays on a
// cron schedule.
type Cleaner struct {
	Tokens  TokenPurger // nil when revocations live in redis
	Plays   PlayEvicter
	PlayTTL time.Duration

	Now func() time.Time
}

// PurgeTokens deletes revocations whose token has already expired.
func (c *Cleaner) PurgeTokens(ctx context.Context) {
	if c.Tokens == nil {
		return
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	n, err := c.Tokens.PurgeExpired(ctx, now())
	if err != nil {
		log.Printf("[ERROR] jobs: purge revoked tokens: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[INFO] jobs: purged %d expired token revocations", n)
	}
}

func (c *Cleaner) EvictPlays() {
	if c.Plays == nil || c.PlayTTL <= 0 {
		return
	}
	if n := c.Plays.EvictIdle(c.PlayTTL); n > 0 {
		log.Printf("[INFO] jobs: evicted %d idle plays (ttl=%s)", n, c.PlayTTL)
	}
}

// Start registers the cleanup jobs and starts the scheduler. Stop the
// returned cron to halt it; overlapping runs are skipped.
func (c *Cleaner) Start() (*cron.Cron, error) {
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	if _, err := cr.AddFunc(purgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		c.PurgeTokens(ctx)
	}); err != nil {
		return nil, err
	}
	if _, err := cr.AddFunc(evictSchedule, c.EvictPlays); err != nil {
		return nil, err
	}

	log.Printf("[INFO] jobs: started purge=%q evict=%q playTTL=%s", purgeSchedule, evictSchedule, c.PlayTTL)
	cr.Start()
	return cr, nil
}
