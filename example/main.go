// Minimal example for securesheets demonstrating a basic signed GET plus
// a slightly more advanced client with a tuned transport, request IDs and
// debug logging. The full verbose scenarios were removed intentionally to
// keep the example approachable; see the examples directory for extended
// patterns.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/vsanm01/securesheets-go"
)

func main() {
	cfg := securesheets.Config{
		Endpoint: os.Getenv("SECURESHEETS_ENDPOINT"),
		Token:    os.Getenv("SECURESHEETS_TOKEN"),
		Secret:   os.Getenv("SECURESHEETS_HMAC_SECRET"),
		Origin:   "example",
	}

	// --- Basic client (hardened defaults) ---
	basic, err := securesheets.New(cfg, securesheets.WithSimpleLogger())
	if err != nil {
		log.Fatalf("invalid basic client config: %v", err)
	}
	if !basic.IsConfigured() {
		log.Fatal("basic client reports unconfigured")
	}
	ctx := context.Background()
	resp, err := basic.Get(ctx, "ping", nil)
	if err != nil {
		log.Fatalf("basic GET failed: %v", err)
	}
	fmt.Println("basic GET status", resp.Status)

	// --- Advanced snippet: tuned transport + correlation IDs for debugging ---
	advanced, err := securesheets.New(cfg,
		securesheets.WithHTTPClient(&http.Client{
			Transport: &http.Transport{MaxIdleConnsPerHost: 4},
		}),
		securesheets.WithDebug(),
		securesheets.WithLogger(securesheets.NewSimpleLogger()),
		securesheets.WithRequestIDGenerator(func() string {
			return fmt.Sprintf("example-%d", time.Now().UnixNano())
		}),
		securesheets.WithNonceCapacity(256),
	)
	if err != nil {
		log.Fatalf("invalid advanced client config: %v", err)
	}
	start := time.Now()
	r2, err := advanced.Get(ctx, "ping", nil)
	if err != nil {
		log.Fatalf("advanced GET failed: %v", err)
	}
	fmt.Printf("advanced GET status %s took %v\n", r2.Status, time.Since(start))

	runTypedExamples(cfg)
}
