package securesheets

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNonceCapacity bounds the set of recently issued nonces.
const DefaultNonceCapacity = 1000

// maxNonceAttempts caps regeneration when a fresh nonce collides with a
// tracked one.
const maxNonceAttempts = 10

// nonceTracker issues unique request nonces and remembers the most recent
// ones in a fixed-size ring, so the same nonce is never handed out twice
// while it is still tracked.
type nonceTracker struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	ring  []string
	head  int
	count int

	// swappable for tests
	now         func() time.Time
	randomBlock func() string
}

func newNonceTracker(capacity int) *nonceTracker {
	if capacity <= 0 {
		capacity = DefaultNonceCapacity
	}
	return &nonceTracker{
		seen:        make(map[string]struct{}, capacity),
		ring:        make([]string, capacity),
		now:         time.Now,
		randomBlock: uuidBlock,
	}
}

// uuidBlock returns the first block of a random UUID, eight hex characters.
func uuidBlock() string {
	return uuid.NewString()[:8]
}

// next issues a nonce of the form <base36 unix-millis>-<8 hex chars> and
// records it.
func (n *nonceTracker) next() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		nonce := strconv.FormatInt(n.now().UnixMilli(), 36) + "-" + n.randomBlock()
		if _, dup := n.seen[nonce]; dup {
			continue
		}
		n.remember(nonce)
		return nonce, nil
	}

	return "", &Error{
		Code:    ErrCodeNonceExhausted,
		Message: fmt.Sprintf("no unique nonce after %d attempts", maxNonceAttempts),
	}
}

// remember stores nonce, evicting the oldest entry when the ring is full.
// Callers hold the lock.
func (n *nonceTracker) remember(nonce string) {
	if n.count == len(n.ring) {
		delete(n.seen, n.ring[n.head])
		n.ring[n.head] = nonce
		n.head = (n.head + 1) % len(n.ring)
	} else {
		n.ring[(n.head+n.count)%len(n.ring)] = nonce
		n.count++
	}
	n.seen[nonce] = struct{}{}
}

// clear drops every tracked nonce.
func (n *nonceTracker) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = make(map[string]struct{}, len(n.ring))
	n.ring = make([]string, len(n.ring))
	n.head = 0
	n.count = 0
}

// size reports how many nonces are currently tracked.
func (n *nonceTracker) size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}
