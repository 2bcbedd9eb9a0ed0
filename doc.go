// Package securesheets provides a hardened client for Google Apps Script
// spreadsheet backends that verify HMAC-signed requests:
//
//   - HMAC-SHA256 request signing over a canonical parameter string
//   - Replay protection through unique per-request nonces
//   - Derived CSRF tokens on write requests
//   - A client-side hourly request ceiling with reset reporting
//   - In-memory response caching for reads with per-request overrides
//   - Response envelope normalization, checksum verification and typed errors
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via pluggable cache, logger, metrics and decoder
//
// Typical usage:
//
//	client, err := securesheets.New(securesheets.Config{
//	    Endpoint: "https://script.google.com/macros/s/DEPLOYMENT_ID/exec",
//	    Token:    os.Getenv("SECURESHEETS_TOKEN"),
//	    Secret:   os.Getenv("SECURESHEETS_HMAC_SECRET"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := client.Get(ctx, "getProducts", securesheets.Params{"category": "tools"})
//
// Every request carries the token, origin, timestamp, an optional nonce and a
// signature computed over the sorted parameter set; the server recomputes the
// signature from its shared secret and rejects anything stale, replayed or
// tampered with. Failures come back as *Error values with stable codes for
// errors.Is matching.
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger or WithZapLogger) and enable debug flags selectively
// (WithDebug / WithDebugConfig) for insight without noise.
package securesheets
