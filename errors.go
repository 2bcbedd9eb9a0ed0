package securesheets

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a failure class with a stable machine-readable string.
type ErrorCode string

const (
	// ErrCodeConfiguration marks a missing or invalid configuration field.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeNotConfigured marks an operation attempted on a client that has
	// no endpoint, token or secret set. No network call is made.
	ErrCodeNotConfigured ErrorCode = "not_configured"
	// ErrCodeNonceExhausted marks nonce generation colliding past the retry
	// ceiling.
	ErrCodeNonceExhausted ErrorCode = "nonce_exhausted"
	// ErrCodeRateLimited marks the client-side request ceiling being reached.
	// The error carries the time the window reopens.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeTimeout marks a request exceeding its configured timeout.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeNetwork marks a transport failure that is neither a timeout nor
	// an HTTP-level error (DNS, dial, TLS, connection reset).
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeAPI marks a server-reported error, either a non-2xx status or an
	// error-shaped response body. Server code and details are carried verbatim.
	ErrCodeAPI ErrorCode = "api"
	// ErrCodeIntegrity marks a response whose checksum did not match its data.
	// The response is discarded and never cached.
	ErrCodeIntegrity ErrorCode = "integrity"
	// ErrCodeDependencyMissing marks a protocol descriptor requesting a
	// cryptographic primitive this build does not provide.
	ErrCodeDependencyMissing ErrorCode = "dependency_missing"
)

// Sentinel errors for errors.Is matching. Every *Error produced by the client
// matches the sentinel carrying the same code.
var (
	ErrConfiguration     = &Error{Code: ErrCodeConfiguration, Message: "invalid configuration"}
	ErrNotConfigured     = &Error{Code: ErrCodeNotConfigured, Message: "client is not configured"}
	ErrNonceExhausted    = &Error{Code: ErrCodeNonceExhausted, Message: "nonce generation exhausted"}
	ErrRateLimited       = &Error{Code: ErrCodeRateLimited, Message: "rate limit exceeded"}
	ErrTimeout           = &Error{Code: ErrCodeTimeout, Message: "request timed out"}
	ErrNetwork           = &Error{Code: ErrCodeNetwork, Message: "network request failed"}
	ErrAPI               = &Error{Code: ErrCodeAPI, Message: "server returned an error"}
	ErrIntegrity         = &Error{Code: ErrCodeIntegrity, Message: "response checksum mismatch"}
	ErrDependencyMissing = &Error{Code: ErrCodeDependencyMissing, Message: "required primitive unavailable"}
)

// Error is the error type returned by all client operations. Secrets and API
// tokens never appear in any of its fields; the endpoint is recorded without
// its query string for the same reason.
type Error struct {
	Code      ErrorCode
	Message   string
	Cause     error
	RequestID string

	Action   string
	Method   string
	Endpoint string

	// StatusCode is the HTTP status, when a response was received.
	StatusCode int
	// ServerCode and Details carry the server's own error fields verbatim.
	ServerCode string
	Details    any

	// ResetAt is set on rate-limit errors: the instant the window reopens.
	ResetAt time.Time

	Timestamp time.Time
	Duration  time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ServerCode != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.ServerCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same code, which makes
// errors.Is(err, ErrRateLimited) style checks work.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if other, ok := target.(*Error); ok {
		return e.Code == other.Code
	}
	return false
}

// IsRetryable reports whether re-invoking the operation might succeed.
// The client never retries on its own; this helps callers decide.
// Rate-limited requests become retryable once ResetAt passes, timeouts and
// transport failures are retryable immediately, server errors only for 5xx
// and 429.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Code {
	case ErrCodeTimeout, ErrCodeNetwork, ErrCodeRateLimited:
		return true
	case ErrCodeAPI:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// FormatError renders err for end users: stable code plus message, with the
// cause chain and request context stripped. Secrets never appear because they
// are never stored on the error in the first place.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FormatErrorDebug renders err with full diagnostic context for logs and bug
// reports.
func FormatErrorDebug(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	return e.DebugInfo()
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Code: %s\n", e.Code)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Action != "" {
		info += fmt.Sprintf("Action: %s\n", e.Action)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.ServerCode != "" {
		info += fmt.Sprintf("Server Code: %s\n", e.ServerCode)
	}
	if e.Details != nil {
		info += fmt.Sprintf("Details: %v\n", e.Details)
	}
	if !e.ResetAt.IsZero() {
		info += fmt.Sprintf("Reset At: %s\n", e.ResetAt.Format(time.RFC3339))
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
