package securesheets

import (
	"time"

	"github.com/google/uuid"
)

// Params carries caller-supplied request parameters for an action. Values are
// sent and signed as-is; use fmt.Sprint or strconv to stringify numbers before
// putting them in. A nil Params is valid and means "no parameters".
type Params map[string]string

func (p Params) clone() Params {
	out := make(Params, len(p)+8)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CacheEntry represents a validated response stored until ExpiresAt.
type CacheEntry struct {
	Response  *Response
	ExpiresAt time.Time
}

// Cache is the response cache contract. Implementations must be safe for
// concurrent use and treat entries past ExpiresAt as absent.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
}

// Option represents a construction-time configuration option.
type Option func(*Client)

// DebugConfig controls debug logging output per area.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogRateLimit bool
	LogSigning   bool
	LogDiscovery bool
	// RequestIDGen produces per-request correlation IDs for log lines and
	// error context.
	RequestIDGen func() string
}

// DefaultDebugConfig returns a debug configuration with every area except
// signing enabled and UUID request IDs. Enabled is left false; signing logs
// are opt-in.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		LogRateLimit: true,
		LogSigning:   false,
		LogDiscovery: true,
		RequestIDGen: uuid.NewString,
	}
}
