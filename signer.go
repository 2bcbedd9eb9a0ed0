package securesheets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"time"

	"github.com/vsanm01/securesheets-go/internal/canonical"
)

const (
	// ProtocolVersion is the contract generation this client implements.
	ProtocolVersion = "2"

	// AlgorithmHMACSHA256 is the only MAC primitive the client ships.
	AlgorithmHMACSHA256 = "hmac-sha256"
)

// Protocol describes the signing contract shared with the server: which
// authentication fields travel with a request, how the canonical string is
// keyed, and where the signature goes. Use DefaultProtocol unless the server
// advertises something else.
type Protocol struct {
	// Version identifies the contract generation. Discovery compares it
	// against the version the server reports.
	Version string

	// Algorithm names the MAC primitive applied to the canonical string.
	Algorithm string

	// RequiredFields are the authentication parameters attached to every
	// signed request alongside the caller's own.
	RequiredFields []string

	// SignatureField is the parameter the computed signature travels in.
	// It is never part of the signed material.
	SignatureField string
}

// DefaultProtocol returns the v2 contract: HMAC-SHA256 over the sorted
// key=value parameter string, signature in the "signature" parameter.
func DefaultProtocol() Protocol {
	return Protocol{
		Version:        ProtocolVersion,
		Algorithm:      AlgorithmHMACSHA256,
		RequiredFields: []string{"action", "nonce", "origin", "timestamp", "token"},
		SignatureField: "signature",
	}
}

// signer computes request signatures and derived tokens for one secret and
// protocol descriptor.
type signer struct {
	protocol Protocol
	secret   string
}

// sign computes the signature over the canonical form of params. The
// signature field itself is excluded from the signed material, so callers may
// pass parameter sets that already carry one.
func (s signer) sign(params Params) (string, error) {
	mac, err := s.newMAC()
	if err != nil {
		return "", err
	}
	mac.Write([]byte(canonical.String(params, s.protocol.SignatureField)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// tag computes a MAC over an arbitrary payload with the same secret and
// algorithm as request signing. CSRF tokens are derived through this.
func (s signer) tag(payload string) (string, error) {
	mac, err := s.newMAC()
	if err != nil {
		return "", err
	}
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s signer) newMAC() (hash.Hash, error) {
	switch s.protocol.Algorithm {
	case AlgorithmHMACSHA256:
		return hmac.New(sha256.New, []byte(s.secret)), nil
	default:
		return nil, &Error{
			Code:    ErrCodeDependencyMissing,
			Message: fmt.Sprintf("signing algorithm %q is not available", s.protocol.Algorithm),
		}
	}
}

// unixTimestamp renders t as the stringified Unix seconds the protocol signs.
func unixTimestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
