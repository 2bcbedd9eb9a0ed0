// Typed response walkthrough: decoding envelope data payloads into struct
// types instead of handling raw JSON by hand.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	json "github.com/goccy/go-json"

	"github.com/vsanm01/securesheets-go"
)

// User is a sheet row from the users tab.
type User struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Order is a sheet row from the orders tab.
type Order struct {
	Row    int     `json:"row"`
	Item   string  `json:"item"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// strictDecoder rejects payload fields the target struct does not declare.
type strictDecoder struct{}

func (strictDecoder) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func runTypedExamples(cfg securesheets.Config) {
	client, err := securesheets.New(cfg, securesheets.WithSimpleLogger())
	if err != nil {
		log.Fatalf("invalid client config: %v", err)
	}

	ctx := context.Background()

	// Example 1: GetJSON unmarshals the data payload in one call.
	fmt.Println("=== Example 1: GetJSON - Automatic Unmarshaling ===")
	var users []User
	err = client.GetJSON(ctx, "getUsers", securesheets.Params{"limit": "3"}, &users)
	if err != nil {
		log.Printf("GetJSON failed: %v", err)
	} else {
		fmt.Printf("Users: %+v\n\n", users)
	}

	// Example 2: PostJSON signs a write and decodes the created row.
	fmt.Println("=== Example 2: PostJSON - Write and Decode ===")
	var created User
	err = client.PostJSON(ctx, "addUser", securesheets.Params{
		"name":  "John Doe",
		"email": "john@example.com",
		"role":  "viewer",
	}, &created)
	if err != nil {
		log.Printf("PostJSON failed: %v", err)
	} else {
		fmt.Printf("Created user: %+v\n\n", created)
	}

	// Example 3: Get keeps the envelope metadata alongside the typed data.
	fmt.Println("=== Example 3: Get + Decode - Envelope Metadata ===")
	resp, err := client.Get(ctx, "getOrders", securesheets.Params{"status": "open"})
	if err != nil {
		log.Printf("Get failed: %v", err)
	} else {
		fmt.Printf("Status: %s\n", resp.Status)
		fmt.Printf("Checksum: %s\n", resp.Checksum)
		var orders []Order
		if err := resp.Decode(&orders); err != nil {
			log.Printf("Decode failed: %v", err)
		} else {
			fmt.Printf("Open orders: %d\n\n", len(orders))
		}
	}

	// Example 4: a custom unmarshaler rejects fields the struct does not know.
	fmt.Println("=== Example 4: Custom Unmarshaler - Strict Decoding ===")
	strict, err := securesheets.New(cfg, securesheets.WithUnmarshaler(strictDecoder{}))
	if err != nil {
		log.Fatalf("invalid strict client config: %v", err)
	}
	var user User
	err = strict.GetJSON(ctx, "getUser", securesheets.Params{"row": "2"}, &user)
	if err != nil {
		log.Printf("strict decode rejected the payload: %v", err)
	} else {
		fmt.Printf("User: %+v\n\n", user)
	}

	// Example 5: backend rejections surface as typed api errors.
	fmt.Println("=== Example 5: Error Handling ===")
	var missing User
	err = client.GetJSON(ctx, "getUser", securesheets.Params{"row": "999999"}, &missing)
	if err != nil {
		fmt.Printf("Expected error for missing row: %s\n", securesheets.FormatError(err))
		var apiErr *securesheets.Error
		if errors.As(err, &apiErr) && errors.Is(err, securesheets.ErrAPI) {
			fmt.Printf("Server code: %s\n", apiErr.ServerCode)
		}
	}
}
