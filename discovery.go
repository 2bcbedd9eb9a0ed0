package securesheets

import (
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// ServerLimits is the advisory quota state the server publishes.
type ServerLimits struct {
	MaxRequestsPerHour int `json:"maxRequestsPerHour"`
	Remaining          int `json:"remaining"`
}

// ServerInfo describes the backend as reported by discovery. Purely
// advisory: the client behaves identically when it is empty.
type ServerInfo struct {
	Version  string          `json:"version"`
	Features map[string]bool `json:"features"`
	Limits   ServerLimits    `json:"limits"`
}

func (i ServerInfo) copy() ServerInfo {
	out := i
	if i.Features != nil {
		out.Features = make(map[string]bool, len(i.Features))
		for k, v := range i.Features {
			out.Features[k] = v
		}
	}
	return out
}

// Discover probes the backend for its capabilities: a GET with ?type=config,
// then the legacy ?action=config when that fails. The result is stored on
// the client and returned. Discovery requests are unsigned, bypass the
// response cache and never consume rate-limit quota.
func (c *Client) Discover(ctx context.Context) (ServerInfo, error) {
	st, err := c.snapshot()
	if err != nil {
		return ServerInfo{}, err
	}

	requestID := c.newRequestID()

	info, derr := c.probe(ctx, st, "type")
	if derr != nil {
		c.logDiscovery("Discovery probe failed, trying legacy parameter", "requestID", requestID, "error", derr.Error())
		info, derr = c.probe(ctx, st, "action")
	}
	if derr != nil {
		c.metrics.RecordDiscovery("failed")
		c.logDiscovery("Discovery failed", "requestID", requestID, "error", derr.Error())
		return ServerInfo{}, derr
	}

	c.infoMu.Lock()
	c.info = info
	c.infoMu.Unlock()

	c.metrics.RecordDiscovery("ok")
	c.logDiscovery("Discovery complete", "requestID", requestID, "serverVersion", info.Version)

	return info, nil
}

// ServerInfo returns the last discovered backend description. It stays zero
// until a Discover succeeds; Limits.Remaining also updates from response
// headers as requests run.
func (c *Client) ServerInfo() ServerInfo {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	return c.info.copy()
}

func (c *Client) probe(ctx context.Context, st callState, param string) (ServerInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, st.cfg.Timeout)
	defer cancel()

	u := *st.endpoint
	q := u.Query()
	q.Set(param, "config")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ServerInfo{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ServerInfo{}, err
	}
	defer resp.Body.Close()

	c.consumeHeaders(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ServerInfo{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ServerInfo{}, fmt.Errorf("discovery returned %s", resp.Status)
	}

	return parseServerInfo(body)
}

// parseServerInfo accepts both a bare config object and one wrapped in the
// standard response envelope.
func parseServerInfo(body []byte) (ServerInfo, error) {
	payload := body
	if resp, fault, err := decodeEnvelope(body); err == nil {
		if fault != nil {
			return ServerInfo{}, fmt.Errorf("discovery rejected: %s", fault.Message)
		}
		if len(resp.Data) > 0 {
			payload = resp.Data
		}
	}

	var info ServerInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return ServerInfo{}, fmt.Errorf("decoding server info: %w", err)
	}
	if info.Version == "" && info.Features == nil && info.Limits == (ServerLimits{}) {
		return ServerInfo{}, fmt.Errorf("discovery response carries no server info")
	}
	return info, nil
}

// setServerRemaining folds the X-RateLimit-Remaining header into the
// advisory limits.
func (c *Client) setServerRemaining(n int) {
	c.infoMu.Lock()
	c.info.Limits.Remaining = n
	c.infoMu.Unlock()
}
