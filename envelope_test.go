package securesheets

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDecodeEnvelopeModernSuccess(t *testing.T) {
	body := []byte(`{"status":"success","data":{"items":[1,2,3]},"message":"ok","checksum":"abc","timestamp":"2024-01-15T10:00:00Z"}`)

	resp, fault, err := decodeEnvelope(body)
	if err != nil || fault != nil {
		t.Fatalf("expected success envelope, got fault=%v err=%v", fault, err)
	}
	if resp.Status != StatusSuccess {
		t.Errorf("Status = %q", resp.Status)
	}
	if string(resp.Data) != `{"items":[1,2,3]}` {
		t.Errorf("Data = %s", resp.Data)
	}
	if resp.Message != "ok" || resp.Checksum != "abc" || resp.Timestamp != "2024-01-15T10:00:00Z" {
		t.Errorf("metadata not carried over: %+v", resp)
	}
}

func TestDecodeEnvelopeLegacySuccess(t *testing.T) {
	body := []byte(`{"success":true,"data":[{"id":7}],"message":"fetched"}`)

	resp, fault, err := decodeEnvelope(body)
	if err != nil || fault != nil {
		t.Fatalf("expected success envelope, got fault=%v err=%v", fault, err)
	}
	if resp.Status != StatusSuccess {
		t.Errorf("legacy success should normalize to %q, got %q", StatusSuccess, resp.Status)
	}
	if string(resp.Data) != `[{"id":7}]` {
		t.Errorf("Data = %s", resp.Data)
	}
}

func TestDecodeEnvelopeModernError(t *testing.T) {
	body := []byte(`{"status":"error","message":"Invalid token","code":"AUTH_FAILED","details":{"field":"token"}}`)

	resp, fault, err := decodeEnvelope(body)
	if err != nil || resp != nil {
		t.Fatalf("expected fault, got resp=%v err=%v", resp, err)
	}
	if fault.Message != "Invalid token" {
		t.Errorf("Message = %q", fault.Message)
	}
	if fault.Code != "AUTH_FAILED" {
		t.Errorf("Code = %q", fault.Code)
	}
	if string(fault.Details) != `{"field":"token"}` {
		t.Errorf("Details = %s", fault.Details)
	}
}

func TestDecodeEnvelopeLegacyError(t *testing.T) {
	body := []byte(`{"success":false,"error":"Rate limit exceeded"}`)

	_, fault, err := decodeEnvelope(body)
	if err != nil || fault == nil {
		t.Fatalf("expected fault, got err=%v", err)
	}
	if fault.Message != "Rate limit exceeded" {
		t.Errorf("Message = %q", fault.Message)
	}
}

func TestDecodeEnvelopeErrorWithoutMessage(t *testing.T) {
	_, fault, err := decodeEnvelope([]byte(`{"status":"error"}`))
	if err != nil || fault == nil {
		t.Fatalf("expected fault, got err=%v", err)
	}
	if fault.Message == "" {
		t.Error("fault should carry a fallback message")
	}
}

func TestDecodeEnvelopeUnparseable(t *testing.T) {
	_, _, err := decodeEnvelope([]byte(`<html>Service unavailable</html>`))
	if err == nil {
		t.Error("expected decode error for non-JSON body")
	}
}

func TestDecodeEnvelopeUnrecognizableShape(t *testing.T) {
	_, _, err := decodeEnvelope([]byte(`{"foo":1}`))
	if err == nil {
		t.Error("expected error for envelope without status or success")
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte(`{"items":[1,2,3]}`)
	sum := sha256.Sum256(data)
	good := hex.EncodeToString(sum[:])

	t.Run("match", func(t *testing.T) {
		r := &Response{Data: data, Checksum: good}
		if err := r.VerifyChecksum(); err != nil {
			t.Errorf("expected pass, got %v", err)
		}
	})

	t.Run("uppercase match", func(t *testing.T) {
		r := &Response{Data: data, Checksum: strings.ToUpper(good)}
		if err := r.VerifyChecksum(); err != nil {
			t.Errorf("hex case must not matter, got %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		r := &Response{Data: data, Checksum: strings.Repeat("0", 64)}
		err := r.VerifyChecksum()
		if err == nil {
			t.Fatal("expected integrity error")
		}
		if !errors.Is(err, ErrIntegrity) {
			t.Errorf("expected integrity error, got %v", err)
		}
	})

	t.Run("absent checksum passes", func(t *testing.T) {
		r := &Response{Data: data}
		if err := r.VerifyChecksum(); err != nil {
			t.Errorf("responses without checksum must pass, got %v", err)
		}
	})
}

func TestResponseDecode(t *testing.T) {
	type product struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	r := &Response{Data: []byte(`[{"id":1,"name":"Hammer"},{"id":2,"name":"Wrench"}]`)}

	var products []product
	if err := r.Decode(&products); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(products) != 2 || products[1].Name != "Wrench" {
		t.Errorf("decoded %+v", products)
	}
}

func TestResponseDecodeWithoutData(t *testing.T) {
	r := &Response{Message: "deleted"}
	var v map[string]interface{}
	if err := r.Decode(&v); err == nil {
		t.Error("expected error when no data payload is present")
	}
}

func TestResponseDecodeCustomUnmarshaler(t *testing.T) {
	called := false
	r := &Response{
		Data: []byte(`{"id":1}`),
		unmarshal: func(data []byte, v interface{}) error {
			called = true
			if string(data) != `{"id":1}` {
				return fmt.Errorf("unexpected data %s", data)
			}
			return nil
		},
	}

	var v struct{}
	if err := r.Decode(&v); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !called {
		t.Error("custom unmarshaler was not used")
	}
}
