package securesheets

import (
	"sync/atomic"
	"time"
)

// rateWindowLength is the fixed accounting window for the request ceiling.
const rateWindowLength = time.Hour

// RateLimitState is a snapshot of the client-side request window.
type RateLimitState struct {
	Used    int
	Limit   int
	ResetAt time.Time
}

// Remaining reports how many requests the current window still admits.
func (s RateLimitState) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// rateWindow enforces a fixed hourly request ceiling. Counter and window
// start live in atomics; the window resets lazily on the first call after it
// elapses. No queueing: a full window rejects immediately.
type rateWindow struct {
	limit       int64
	windowStart int64 // unix nanos
	current     int64

	now func() time.Time
}

func newRateWindow(limit int) *rateWindow {
	rw := &rateWindow{limit: int64(limit), now: time.Now}
	rw.windowStart = rw.now().UnixNano()
	return rw
}

// allow consumes one request slot. When the ceiling is reached it reports
// false together with the time the window reopens. Consumed slots are never
// handed back; a request that later fails or times out still counts.
func (rw *rateWindow) allow() (bool, time.Time) {
	now := rw.now().UnixNano()
	windowStart := atomic.LoadInt64(&rw.windowStart)

	if now-windowStart >= int64(rateWindowLength) {
		if atomic.CompareAndSwapInt64(&rw.windowStart, windowStart, now) {
			atomic.StoreInt64(&rw.current, 0)
		}
		windowStart = atomic.LoadInt64(&rw.windowStart)
	}

	resetAt := time.Unix(0, windowStart).Add(rateWindowLength)

	if atomic.LoadInt64(&rw.current) >= rw.limit {
		return false, resetAt
	}

	if atomic.AddInt64(&rw.current, 1) > rw.limit {
		return false, resetAt
	}

	return true, time.Time{}
}

// reset starts a fresh window immediately.
func (rw *rateWindow) reset() {
	atomic.StoreInt64(&rw.windowStart, rw.now().UnixNano())
	atomic.StoreInt64(&rw.current, 0)
}

// state snapshots the window for callers.
func (rw *rateWindow) state() RateLimitState {
	used := atomic.LoadInt64(&rw.current)
	if used > rw.limit {
		used = rw.limit
	}
	start := atomic.LoadInt64(&rw.windowStart)
	return RateLimitState{
		Used:    int(used),
		Limit:   int(rw.limit),
		ResetAt: time.Unix(0, start).Add(rateWindowLength),
	}
}
