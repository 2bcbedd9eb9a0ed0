package securesheets

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WithHTTPClient sets a custom HTTP client. Deadlines come from per-request
// contexts, so the client's own Timeout can stay zero.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithProtocol replaces the signing contract. Use it when the server
// advertises a different protocol generation; an algorithm the client does
// not ship fails at signing time with a dependency_missing error.
func WithProtocol(p Protocol) Option {
	return func(c *Client) {
		c.protocol = p
	}
}

// WithCache sets a custom response cache implementation.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithoutCache disables response caching entirely.
func WithoutCache() Option {
	return func(c *Client) {
		c.cache = nil
		c.cacheOff = true
	}
}

// WithNonceCapacity bounds the tracked nonce set. Values below one fall back
// to DefaultNonceCapacity.
func WithNonceCapacity(n int) Option {
	return func(c *Client) {
		c.nonceCapacity = n
	}
}

// WithUnmarshaler sets the decoder Response.Decode uses for data payloads.
func WithUnmarshaler(u Unmarshaler) Option {
	return func(c *Client) {
		c.unmarshaler = u
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithZapLogger routes debug output through a zap logger.
func WithZapLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = NewZapLogger(logger)
	}
}

// WithRequestIDGenerator sets a custom function for request correlation IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithDiscoverOnConfigure makes New probe the server for its capabilities
// right after configuration. The probe is best effort; a failure is logged
// and otherwise ignored.
func WithDiscoverOnConfigure() Option {
	return func(c *Client) {
		c.discoverOnNew = true
	}
}

// validateOptions checks option combinations that Config.validate cannot
// see. Run by New after the options are applied.
func (c *Client) validateOptions() error {
	var issues []string

	issues = append(issues, c.validateDebugOptions()...)
	issues = append(issues, c.validateTransportOptions()...)
	issues = append(issues, c.validateProtocolOptions()...)

	if len(issues) > 0 {
		return &Error{
			Code:    ErrCodeConfiguration,
			Message: "option validation failed",
			Cause:   fmt.Errorf("validation errors: %v", issues),
			Details: issues,
		}
	}

	return nil
}

func (c *Client) validateDebugOptions() []string {
	var issues []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			issues = append(issues, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			issues = append(issues, "logger must be set when debug is enabled")
		}
	}

	return issues
}

func (c *Client) validateTransportOptions() []string {
	var issues []string

	if c.httpClient == nil {
		issues = append(issues, "HTTP client cannot be nil")
	}

	return issues
}

func (c *Client) validateProtocolOptions() []string {
	var issues []string

	if c.protocol.Algorithm == "" {
		issues = append(issues, "protocol must name an algorithm")
	}
	if c.protocol.SignatureField == "" {
		issues = append(issues, "protocol must name a signature field")
	}
	if len(c.protocol.RequiredFields) == 0 {
		issues = append(issues, "protocol must list its required fields")
	}

	return issues
}
