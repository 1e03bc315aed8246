package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MessageRateLimiter keeps one token bucket per sender key (channel + sender id)
type MessageRateLimiter struct {
	mu       sync.Mutex
	senders  map[string]*senderBucket
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

type senderBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter creates a limiter allowing perSecond messages with
// the given burst for every sender. Idle buckets are dropped in the background
// until Stop is called.
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &MessageRateLimiter{
		senders: make(map[string]*senderBucket),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		stop:    make(chan struct{}),
	}
	go rl.cleanup(5 * time.Minute)
	return rl
}

// SenderKey builds the bucket key for a sender on a channel
func SenderKey(channel, sender string) string {
	return channel + ":" + sender
}

// Allow consumes one token for key if available
func (rl *MessageRateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	return rl.bucket(key).Allow()
}

// WaitTime returns how long key has to wait for its next token
func (rl *MessageRateLimiter) WaitTime(key string) time.Duration {
	if rl == nil {
		return 0
	}
	r := rl.bucket(key).Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 0
	}
	return r.Delay()
}

// Reset forgets key's bucket
func (rl *MessageRateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.senders, key)
}

func (rl *MessageRateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.senders[key]
	if !ok {
		b = &senderBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.senders[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (rl *MessageRateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *MessageRateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.senders {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.senders, key)
		}
	}
}

// Stop ends the background cleanup
func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *MessageRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"active_senders": len(rl.senders),
		"rate":           float64(rl.rate),
		"burst":          rl.burst,
	}
}
