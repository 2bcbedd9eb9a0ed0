package securesheets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is a normalized success envelope. The backend emits two envelope
// generations ({"status":"success",...} and the legacy {"success":true,...});
// both collapse into this shape, so callers never see the difference.
type Response struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Checksum  string          `json:"checksum,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`

	unmarshal func(data []byte, v interface{}) error
}

// Decode unmarshals the data payload into v. A custom Unmarshaler configured
// on the client is honored here.
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response carries no data payload")
	}
	if r.unmarshal != nil {
		return r.unmarshal(r.Data, v)
	}
	return json.Unmarshal(r.Data, v)
}

// VerifyChecksum compares the advertised checksum against the SHA-256 of the
// raw data bytes. Responses without a checksum pass. The client runs this
// automatically when ValidateChecksums is on; callers may invoke it manually
// otherwise.
func (r *Response) VerifyChecksum() error {
	if r.Checksum == "" {
		return nil
	}
	sum := sha256.Sum256(r.Data)
	computed := hex.EncodeToString(sum[:])
	if strings.EqualFold(computed, r.Checksum) {
		return nil
	}
	return &Error{
		Code:    ErrCodeIntegrity,
		Message: "response checksum mismatch",
		Details: map[string]string{
			"advertised": r.Checksum,
			"computed":   computed,
		},
	}
}

// serverFault is the decoded form of an error envelope.
type serverFault struct {
	Message string
	Code    string
	Details json.RawMessage
}

// wireEnvelope accepts both envelope generations in one pass.
type wireEnvelope struct {
	Status    string          `json:"status"`
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorMsg  string          `json:"error"`
	Code      string          `json:"code"`
	Details   json.RawMessage `json:"details"`
	Checksum  string          `json:"checksum"`
	Timestamp string          `json:"timestamp"`
}

// decodeEnvelope parses a response body. Exactly one of the three results is
// set: a normalized success Response, a serverFault for error envelopes, or
// an error for bodies that are not an envelope at all.
func decodeEnvelope(body []byte) (*Response, *serverFault, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("decoding response envelope: %w", err)
	}

	switch {
	case env.Status == StatusSuccess,
		env.Status == "" && env.Success != nil && *env.Success:
		return &Response{
			Status:    StatusSuccess,
			Data:      env.Data,
			Message:   env.Message,
			Checksum:  env.Checksum,
			Timestamp: env.Timestamp,
		}, nil, nil

	case env.Status == StatusError,
		env.Success != nil && !*env.Success:
		msg := env.Message
		if msg == "" {
			msg = env.ErrorMsg
		}
		if msg == "" {
			msg = "request rejected"
		}
		return nil, &serverFault{Message: msg, Code: env.Code, Details: env.Details}, nil

	default:
		return nil, nil, fmt.Errorf("response envelope has no recognizable status")
	}
}
