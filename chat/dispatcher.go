package chat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/render"
)

// LimiterIdle is how long a channel's limiter may go unused before it is dropped.
// A limiter idle this long has refilled, so a fresh one behaves the same.
const LimiterIdle = 5 * time.Minute

// Dispatcher paces replies per channel before handing them to the platform.
// Slack rejects bursts above roughly one message per second per channel.
type Dispatcher struct {
	next  Replier
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*channelLimiter
	lastSweep time.Time
}

type channelLimiter struct {
	*rate.Limiter
	lastUsed time.Time
	waiting  int
}

// NewDispatcher wraps next. perSecond <= 0 disables pacing.
func NewDispatcher(next Replier, perSecond float64, burst int) *Dispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		next:     next,
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*channelLimiter),
	}
}

// Reply waits for the channel's turn, then delivers
func (d *Dispatcher) Reply(ctx context.Context, conv Conversation, payload render.Payload) error {
	l := d.acquire(conv.Channel)
	err := l.Wait(ctx)
	d.release(l)
	if err != nil {
		return errors.Wrapf(err, "reply to %s not sent", conv.Channel)
	}
	return d.next.Reply(ctx, conv, payload)
}

// acquire returns the channel's limiter, dropping limiters idle past LimiterIdle
func (d *Dispatcher) acquire(channel string) *channelLimiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastSweep) >= LimiterIdle {
		for ch, l := range d.limiters {
			if l.waiting == 0 && now.Sub(l.lastUsed) >= LimiterIdle {
				delete(d.limiters, ch)
			}
		}
		d.lastSweep = now
	}

	l, ok := d.limiters[channel]
	if !ok {
		l = &channelLimiter{Limiter: rate.NewLimiter(d.limit, d.burst)}
		d.limiters[channel] = l
	}
	l.waiting++
	l.lastUsed = now
	return l
}

func (d *Dispatcher) release(l *channelLimiter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l.waiting--
	l.lastUsed = d.now()
}

// channels reports how many channels currently hold a limiter
func (d *Dispatcher) channels() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.limiters)
}
