package securesheets

import (
	"errors"
	"testing"
	"time"
)

func TestCSRFTokenDerivation(t *testing.T) {
	cell := newCSRFCell()
	cell.now = func() time.Time { return time.Unix(1700000000, 0) }
	s := signer{protocol: DefaultProtocol(), secret: "csrf-secret"}

	token, err := cell.get(s, "web")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	want := "1700000000." + hmacSHA256Hex("csrf-secret", "1700000000:web")
	if token != want {
		t.Errorf("token = %s, want %s", token, want)
	}
}

func TestCSRFTokenReusedWhileLive(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	cell := newCSRFCell()
	cell.now = func() time.Time { return clock }
	s := signer{protocol: DefaultProtocol(), secret: "csrf-secret"}

	first, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(29 * time.Minute)
	second, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("token should be reused inside its lifetime")
	}
}

func TestCSRFTokenExpires(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	cell := newCSRFCell()
	cell.now = func() time.Time { return clock }
	s := signer{protocol: DefaultProtocol(), secret: "csrf-secret"}

	first, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(30*time.Minute + time.Second)
	second, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("expired token should be replaced")
	}
}

func TestCSRFClear(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	cell := newCSRFCell()
	cell.now = func() time.Time { return clock }
	s := signer{protocol: DefaultProtocol(), secret: "csrf-secret"}

	first, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}

	cell.clear()
	clock = clock.Add(time.Second)
	second, err := cell.get(s, "web")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("clear should force a fresh token")
	}
}

func TestCSRFUnknownAlgorithm(t *testing.T) {
	cell := newCSRFCell()
	p := DefaultProtocol()
	p.Algorithm = "hmac-md5"
	s := signer{protocol: p, secret: "csrf-secret"}

	_, err := cell.get(s, "web")
	if !errors.Is(err, ErrDependencyMissing) {
		t.Errorf("expected dependency missing error, got %v", err)
	}
}
