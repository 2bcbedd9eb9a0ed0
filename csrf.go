package securesheets

import (
	"sync"
	"time"
)

const (
	// csrfTTL is the absolute lifetime of a CSRF token.
	csrfTTL = 30 * time.Minute

	// csrfField is the body field a CSRF token travels in.
	csrfField = "csrf-token"

	// csrfHeader mirrors the token for servers that read headers.
	csrfHeader = "X-CSRF-Token"
)

// csrfCell holds at most one live CSRF token, minted on demand.
type csrfCell struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

func newCSRFCell() *csrfCell {
	return &csrfCell{now: time.Now}
}

// get returns the live token, minting a fresh one when none exists or the
// current one expired. A token is <unix-seconds>.<mac(ts:origin)>, so the
// server can recompute and check it without storing anything.
func (c *csrfCell) get(s signer, origin string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	ts := unixTimestamp(now)
	tag, err := s.tag(ts + ":" + origin)
	if err != nil {
		return "", err
	}
	c.token = ts + "." + tag
	c.expiresAt = now.Add(csrfTTL)
	return c.token, nil
}

// clear drops the cached token; the next get mints a new one.
func (c *csrfCell) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
