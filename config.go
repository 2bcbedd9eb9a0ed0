package securesheets

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultOrigin identifies this client in signed request parameters when
	// the caller does not set an origin of its own.
	DefaultOrigin = "securesheets-go"

	// DefaultMaxRequestsPerHour is the client-side ceiling per rate window.
	DefaultMaxRequestsPerHour = 100

	// DefaultCacheTTL bounds how long a cached GET response is reused.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultTimeout bounds a single request round trip.
	DefaultTimeout = 30 * time.Second

	// redacted replaces secret material in serialized configuration.
	redacted = "[REDACTED]"
)

// Config carries the connection and hardening settings for a SecureSheets
// backend. The zero value is not usable; pass a Config to New or load one
// with ConfigFromEnv.
type Config struct {
	// Endpoint is the deployed Apps Script web app URL.
	Endpoint string `envconfig:"ENDPOINT" required:"true" json:"endpoint"`

	// Token is the shared API token attached to every request.
	Token string `envconfig:"TOKEN" required:"true" json:"token"`

	// Secret is the HMAC signing key. It is used locally to sign requests
	// and derive CSRF tokens, and is never transmitted.
	Secret string `envconfig:"HMAC_SECRET" required:"true" json:"secret"`

	// Origin names the caller in the signed parameter set.
	Origin string `envconfig:"ORIGIN" default:"securesheets-go" json:"origin"`

	// EnableCSRF attaches a csrf-token field and X-CSRF-Token header to
	// write requests.
	EnableCSRF bool `envconfig:"ENABLE_CSRF" default:"true" json:"enableCSRF"`

	// EnableNonce adds a unique nonce parameter to every signed request.
	EnableNonce bool `envconfig:"ENABLE_NONCE" default:"true" json:"enableNonce"`

	// ValidateChecksums verifies the SHA-256 checksum a response envelope
	// carries against its data payload.
	ValidateChecksums bool `envconfig:"VALIDATE_CHECKSUMS" default:"false" json:"validateChecksums"`

	// AllowInsecureHTTP permits a plain http endpoint. Off by default;
	// HTTPS is required otherwise.
	AllowInsecureHTTP bool `envconfig:"ALLOW_INSECURE_HTTP" default:"false" json:"allowInsecureHTTP"`

	// MaxRequestsPerHour caps requests per fixed one hour window.
	MaxRequestsPerHour int `envconfig:"MAX_REQUESTS_PER_HOUR" default:"100" json:"maxRequestsPerHour"`

	// CacheTTL is how long successful GET responses are served from memory.
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m" json:"cacheTTL"`

	// Timeout is the per-request deadline.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s" json:"timeout"`

	// Debug enables diagnostic logging when a logger is attached.
	Debug bool `envconfig:"DEBUG" default:"false" json:"debug"`

	// HasToggles marks the boolean fields above as deliberately set.
	// Configure only adopts booleans from a Config whose HasToggles is
	// true; otherwise the toggles already in effect are kept. Set it
	// directly or via WithToggles. ConfigFromEnv sets it.
	HasToggles bool `ignored:"true" json:"-"`
}

// DefaultConfig returns the hardened defaults: CSRF and nonces on, checksum
// validation off, HTTPS required, 100 requests per hour, 5 minute cache TTL
// and a 30 second timeout.
func DefaultConfig() Config {
	return Config{
		Origin:             DefaultOrigin,
		EnableCSRF:         true,
		EnableNonce:        true,
		MaxRequestsPerHour: DefaultMaxRequestsPerHour,
		CacheTTL:           DefaultCacheTTL,
		Timeout:            DefaultTimeout,
		HasToggles:         true,
	}
}

// WithToggles returns a copy of c whose boolean fields count as
// deliberately set, so Configure adopts them even when false.
func (c Config) WithToggles() Config {
	c.HasToggles = true
	return c
}

// merge overlays o on top of c. Strings win when non-empty, numbers and
// durations when positive, booleans only when o.HasToggles is set.
func (c Config) merge(o Config) Config {
	if o.Endpoint != "" {
		c.Endpoint = o.Endpoint
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.Secret != "" {
		c.Secret = o.Secret
	}
	if o.Origin != "" {
		c.Origin = o.Origin
	}
	if o.MaxRequestsPerHour > 0 {
		c.MaxRequestsPerHour = o.MaxRequestsPerHour
	}
	if o.CacheTTL > 0 {
		c.CacheTTL = o.CacheTTL
	}
	if o.Timeout > 0 {
		c.Timeout = o.Timeout
	}
	if o.HasToggles {
		c.EnableCSRF = o.EnableCSRF
		c.EnableNonce = o.EnableNonce
		c.ValidateChecksums = o.ValidateChecksums
		c.AllowInsecureHTTP = o.AllowInsecureHTTP
		c.Debug = o.Debug
		c.HasToggles = true
	}
	return c
}

// validate checks a fully merged configuration.
func (c Config) validate() error {
	var issues []string

	issues = append(issues, c.validateEndpoint()...)
	issues = append(issues, c.validateCredentials()...)
	issues = append(issues, c.validateLimits()...)

	if len(issues) > 0 {
		return &Error{
			Code:    ErrCodeConfiguration,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", issues),
			Details: issues,
		}
	}

	return nil
}

func (c Config) validateEndpoint() []string {
	var issues []string

	if strings.TrimSpace(c.Endpoint) == "" {
		return append(issues, "Endpoint must be set")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return append(issues, fmt.Sprintf("Endpoint is not a valid URL: %v", err))
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !c.AllowInsecureHTTP {
			issues = append(issues, "Endpoint must use https (set AllowInsecureHTTP to permit plaintext transport)")
		}
	default:
		issues = append(issues, fmt.Sprintf("Endpoint scheme %q is not supported", u.Scheme))
	}

	if u.Host == "" {
		issues = append(issues, "Endpoint must include a host")
	}

	return issues
}

func (c Config) validateCredentials() []string {
	var issues []string

	if c.Token == "" {
		issues = append(issues, "Token must be set")
	}

	if c.Secret == "" {
		issues = append(issues, "Secret must be set")
	}

	return issues
}

func (c Config) validateLimits() []string {
	var issues []string

	if c.MaxRequestsPerHour <= 0 {
		issues = append(issues, "MaxRequestsPerHour must be positive")
	}

	if c.CacheTTL <= 0 {
		issues = append(issues, "CacheTTL must be positive")
	}

	if c.Timeout <= 0 {
		issues = append(issues, "Timeout must be positive")
	}

	return issues
}

// String renders the configuration with Token and Secret masked. Safe to log.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Endpoint:%s Origin:%s Token:%s Secret:%s CSRF:%t Nonce:%t Checksums:%t InsecureHTTP:%t MaxRequestsPerHour:%d CacheTTL:%s Timeout:%s Debug:%t}",
		c.Endpoint, c.Origin, mask(c.Token), mask(c.Secret),
		c.EnableCSRF, c.EnableNonce, c.ValidateChecksums, c.AllowInsecureHTTP,
		c.MaxRequestsPerHour, c.CacheTTL, c.Timeout, c.Debug,
	)
}

// MarshalJSON masks Token and Secret so serialized configuration never
// carries credentials.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	masked := plain(c)
	masked.Token = mask(masked.Token)
	masked.Secret = mask(masked.Secret)
	return json.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// ConfigFromEnv builds a Config from SECURESHEETS_* environment variables.
// SECURESHEETS_ENDPOINT, SECURESHEETS_TOKEN and SECURESHEETS_HMAC_SECRET are
// required; the remaining variables fall back to the hardened defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("securesheets", &cfg); err != nil {
		return Config{}, &Error{
			Code:    ErrCodeConfiguration,
			Message: "environment configuration incomplete",
			Cause:   err,
		}
	}
	cfg.HasToggles = true
	return cfg, nil
}

// LoadEnvFile loads dotenv files into the process environment, typically
// right before ConfigFromEnv. Missing files are skipped; unreadable or
// malformed files return a configuration error. With no arguments it tries
// ".env" in the working directory.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return &Error{
				Code:    ErrCodeConfiguration,
				Message: fmt.Sprintf("loading env file %s failed", p),
				Cause:   err,
			}
		}
	}
	return nil
}
