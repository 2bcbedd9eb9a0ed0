package securesheets

import (
	"testing"
	"time"
)

func TestParamsClone(t *testing.T) {
	original := Params{"category": "tools", "page": "1"}
	cloned := original.clone()

	cloned["page"] = "2"
	cloned["extra"] = "yes"

	if original["page"] != "1" {
		t.Errorf("Expected original page=1, got %s", original["page"])
	}
	if _, ok := original["extra"]; ok {
		t.Error("Expected mutation of clone to not affect original")
	}
	if cloned["category"] != "tools" {
		t.Errorf("Expected cloned category=tools, got %s", cloned["category"])
	}
}

func TestParamsCloneNil(t *testing.T) {
	var original Params
	cloned := original.clone()

	if cloned == nil {
		t.Fatal("Expected non-nil clone of nil Params")
	}

	cloned["action"] = "getProducts"
	if cloned["action"] != "getProducts" {
		t.Error("Expected clone of nil Params to be writable")
	}
}

func TestCacheEntryFields(t *testing.T) {
	resp := &Response{Status: StatusSuccess}
	expires := time.Now().Add(5 * time.Minute)

	entry := &CacheEntry{Response: resp, ExpiresAt: expires}

	if entry.Response != resp {
		t.Error("Expected response to be stored")
	}
	if !entry.ExpiresAt.Equal(expires) {
		t.Errorf("Expected ExpiresAt=%v, got %v", expires, entry.ExpiresAt)
	}
}

func TestDefaultDebugConfig(t *testing.T) {
	config := DefaultDebugConfig()

	if config.Enabled {
		t.Error("Expected Enabled=false by default")
	}
	if !config.LogRequests || !config.LogCache || !config.LogRateLimit || !config.LogDiscovery {
		t.Error("Expected request, cache, rate limit and discovery areas on by default")
	}
	if config.LogSigning {
		t.Error("Expected signing logs off by default")
	}
	if config.RequestIDGen == nil {
		t.Fatal("Expected a request ID generator")
	}

	first := config.RequestIDGen()
	second := config.RequestIDGen()
	if first == "" || first == second {
		t.Errorf("Expected distinct non-empty request IDs, got %q and %q", first, second)
	}
}

func TestOptionType(t *testing.T) {
	callCount := 0

	option := Option(func(c *Client) {
		callCount++
		c.nonceCapacity = 10
	})

	client := &Client{}
	option(client)

	if callCount != 1 {
		t.Errorf("Expected option to be called once, got %d", callCount)
	}
	if client.nonceCapacity != 10 {
		t.Errorf("Expected nonceCapacity=10, got %d", client.nonceCapacity)
	}
}

func TestCacheControlValues(t *testing.T) {
	control := &CacheControl{Enabled: true, TTL: 30 * time.Minute}

	if !control.Enabled {
		t.Error("Expected Enabled=true")
	}
	if control.TTL != 30*time.Minute {
		t.Errorf("Expected TTL=30m, got %v", control.TTL)
	}

	zero := &CacheControl{}
	if zero.Enabled || zero.TTL != 0 {
		t.Error("Expected zero value to disable caching with no TTL override")
	}
}
