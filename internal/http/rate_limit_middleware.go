package httpx

import (
	"net/http"
	"sync"
	"time"
)

const (
	rateWindow          = time.Minute
	rateSweepInterval   = 5 * time.Minute
	rateKeyPrefixCaller = "caller:"
)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// rateClass splits a caller's budget. Reads, including live view upgrades,
// draw from one pool and mutations from another, so a client polling the
// board cannot starve its own writes.
type rateClass string

const (
	rateClassRead  rateClass = "read"
	rateClassWrite rateClass = "write"
)

func classify(method string) rateClass {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return rateClassWrite
	}
	return rateClassRead
}

// rateBudgets holds per-minute limits by class. Zero disables a class.
type rateBudgets map[rateClass]int

func budgetsFrom(readsPerMinute, writesPerMinute int) rateBudgets {
	return rateBudgets{rateClassRead: readsPerMinute, rateClassWrite: writesPerMinute}
}

func callerRateKey(callerID string, class rateClass) string {
	return rateKeyPrefixCaller + callerID + ":" + string(class)
}

// limitCaller charges the request to its caller's budget for the request
// class. It runs behind requireAuth, so the caller is always known.
func (r *Router) limitCaller(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		class := classify(req.Method)
		limit := r.budgets[class]
		info, ok := authInfoFromContext(req.Context())
		if limit <= 0 || !ok {
			next(w, req)
			return
		}
		decision := r.limiter.Allow(callerRateKey(info.UserID, class), limit, rateWindow)
		r.applyRateHeaders(w, limit, decision)
		if !decision.allowed {
			r.recordRateLimitHit(req.Pattern, string(class))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

// handle registers an authenticated, rate limited route.
func (r *Router) handle(pattern string, next http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.requireAuth(r.limitCaller(next))))
}

// windowCounter keeps fixed windows in process memory. Counters are not
// shared between API instances; use the Redis limiter for that.
type windowCounter struct {
	mu      sync.Mutex
	windows map[string]rateDecision
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter returns an in-process limiter that sweeps expired
// windows in the background until Close.
func NewMemoryRateLimiter() RateLimiter {
	c := newWindowCounter(time.Now)
	go c.sweepLoop()
	return c
}

func newWindowCounter(now func() time.Time) *windowCounter {
	return &windowCounter{
		windows: make(map[string]rateDecision),
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (c *windowCounter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.windows[key]
	if !ok || !now.Before(current.windowEnd) {
		current = rateDecision{windowEnd: now.Add(window)}
	}
	if current.count >= limit {
		current.allowed = false
		return current
	}
	current.count++
	current.allowed = true
	c.windows[key] = current
	return current
}

func (c *windowCounter) sweepLoop() {
	ticker := time.NewTicker(rateSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *windowCounter) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, w := range c.windows {
		if !now.Before(w.windowEnd) {
			delete(c.windows, key)
		}
	}
}

func (c *windowCounter) Close() {
	c.once.Do(func() { close(c.stop) })
}
