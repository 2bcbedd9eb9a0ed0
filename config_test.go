package securesheets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Origin != DefaultOrigin {
		t.Errorf("Origin = %q, want %q", cfg.Origin, DefaultOrigin)
	}
	if !cfg.EnableCSRF || !cfg.EnableNonce {
		t.Error("CSRF and nonce protection should default to enabled")
	}
	if cfg.ValidateChecksums {
		t.Error("checksum validation should default to disabled")
	}
	if cfg.AllowInsecureHTTP {
		t.Error("insecure HTTP should default to disallowed")
	}
	if cfg.MaxRequestsPerHour != DefaultMaxRequestsPerHour {
		t.Errorf("MaxRequestsPerHour = %d, want %d", cfg.MaxRequestsPerHour, DefaultMaxRequestsPerHour)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want %v", cfg.CacheTTL, DefaultCacheTTL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if !cfg.HasToggles {
		t.Error("DefaultConfig should mark its toggles as set")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Endpoint = "https://script.google.com/macros/s/base/exec"
	base.Token = "base-token"
	base.Secret = "base-secret"

	t.Run("non-zero fields win", func(t *testing.T) {
		merged := base.merge(Config{
			Endpoint:           "https://script.google.com/macros/s/next/exec",
			MaxRequestsPerHour: 250,
			Timeout:            10 * time.Second,
		})

		if merged.Endpoint != "https://script.google.com/macros/s/next/exec" {
			t.Errorf("Endpoint not overridden: %q", merged.Endpoint)
		}
		if merged.Token != "base-token" || merged.Secret != "base-secret" {
			t.Error("unset credentials should keep previous values")
		}
		if merged.MaxRequestsPerHour != 250 {
			t.Errorf("MaxRequestsPerHour = %d, want 250", merged.MaxRequestsPerHour)
		}
		if merged.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want 10s", merged.Timeout)
		}
		if merged.CacheTTL != DefaultCacheTTL {
			t.Errorf("CacheTTL changed without being set: %v", merged.CacheTTL)
		}
	})

	t.Run("toggles ignored without HasToggles", func(t *testing.T) {
		merged := base.merge(Config{EnableCSRF: false, EnableNonce: false})

		if !merged.EnableCSRF || !merged.EnableNonce {
			t.Error("toggles changed although HasToggles was not set")
		}
	})

	t.Run("toggles adopted with HasToggles", func(t *testing.T) {
		merged := base.merge(Config{
			EnableCSRF:        false,
			EnableNonce:       false,
			ValidateChecksums: true,
			HasToggles:        true,
		})

		if merged.EnableCSRF || merged.EnableNonce {
			t.Error("toggles should follow the overlay when HasToggles is set")
		}
		if !merged.ValidateChecksums {
			t.Error("ValidateChecksums should follow the overlay")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Endpoint = "https://script.google.com/macros/s/abc123/exec"
	valid.Token = "token"
	valid.Secret = "secret"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid https config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Endpoint = "" },
			wantErr: "Endpoint must be set",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Token = "" },
			wantErr: "Token must be set",
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Secret = "" },
			wantErr: "Secret must be set",
		},
		{
			name:    "http rejected by default",
			mutate:  func(c *Config) { c.Endpoint = "http://script.google.com/macros/s/abc/exec" },
			wantErr: "must use https",
		},
		{
			name: "http allowed when opted in",
			mutate: func(c *Config) {
				c.Endpoint = "http://localhost:8080/exec"
				c.AllowInsecureHTTP = true
			},
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Endpoint = "ftp://example.com/exec" },
			wantErr: "not supported",
		},
		{
			name:    "endpoint without host",
			mutate:  func(c *Config) { c.Endpoint = "https:///exec" },
			wantErr: "must include a host",
		},
		{
			name:    "negative rate ceiling",
			mutate:  func(c *Config) { c.MaxRequestsPerHour = -1 },
			wantErr: "MaxRequestsPerHour must be positive",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -time.Second },
			wantErr: "Timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigStringMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "https://script.google.com/macros/s/abc/exec"
	cfg.Token = "super-secret-token"
	cfg.Secret = "super-secret-key"

	s := cfg.String()
	if strings.Contains(s, "super-secret-token") || strings.Contains(s, "super-secret-key") {
		t.Fatalf("String leaked credentials: %s", s)
	}
	if !strings.Contains(s, redacted) {
		t.Errorf("String should mark masked fields: %s", s)
	}
	if !strings.Contains(s, cfg.Endpoint) {
		t.Errorf("String should keep non-secret fields: %s", s)
	}
}

func TestConfigMarshalJSONMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "https://script.google.com/macros/s/abc/exec"
	cfg.Token = "super-secret-token"
	cfg.Secret = "super-secret-key"

	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "super-secret-token") || strings.Contains(s, "super-secret-key") {
		t.Fatalf("MarshalJSON leaked credentials: %s", s)
	}
	if strings.Count(s, redacted) != 2 {
		t.Errorf("expected token and secret masked, got %s", s)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("loads full configuration", func(t *testing.T) {
		t.Setenv("SECURESHEETS_ENDPOINT", "https://script.google.com/macros/s/env/exec")
		t.Setenv("SECURESHEETS_TOKEN", "env-token")
		t.Setenv("SECURESHEETS_HMAC_SECRET", "env-secret")
		t.Setenv("SECURESHEETS_ENABLE_CSRF", "false")
		t.Setenv("SECURESHEETS_CACHE_TTL", "2m")
		t.Setenv("SECURESHEETS_MAX_REQUESTS_PER_HOUR", "42")

		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("ConfigFromEnv failed: %v", err)
		}
		if cfg.Endpoint != "https://script.google.com/macros/s/env/exec" {
			t.Errorf("Endpoint = %q", cfg.Endpoint)
		}
		if cfg.Token != "env-token" || cfg.Secret != "env-secret" {
			t.Error("credentials not loaded from environment")
		}
		if cfg.EnableCSRF {
			t.Error("SECURESHEETS_ENABLE_CSRF=false should disable CSRF")
		}
		if !cfg.EnableNonce {
			t.Error("unset SECURESHEETS_ENABLE_NONCE should default to enabled")
		}
		if cfg.CacheTTL != 2*time.Minute {
			t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
		}
		if cfg.MaxRequestsPerHour != 42 {
			t.Errorf("MaxRequestsPerHour = %d, want 42", cfg.MaxRequestsPerHour)
		}
		if !cfg.HasToggles {
			t.Error("ConfigFromEnv should mark toggles as set")
		}
	})

	t.Run("missing mandatory variable", func(t *testing.T) {
		t.Setenv("SECURESHEETS_ENDPOINT", "https://script.google.com/macros/s/env/exec")
		t.Setenv("SECURESHEETS_TOKEN", "env-token")
		t.Setenv("SECURESHEETS_HMAC_SECRET", "unused")
		os.Unsetenv("SECURESHEETS_HMAC_SECRET")

		_, err := ConfigFromEnv()
		if err == nil {
			t.Fatal("expected error for missing SECURESHEETS_HMAC_SECRET")
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
		if !strings.Contains(err.Error(), "SECURESHEETS_HMAC_SECRET") {
			t.Errorf("error should name the missing variable: %v", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	content := "SECURESHEETS_TOKEN=file-token\nSECURESHEETS_ORIGIN=file-origin\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SECURESHEETS_TOKEN", "")
	os.Unsetenv("SECURESHEETS_TOKEN")
	t.Setenv("SECURESHEETS_ORIGIN", "")
	os.Unsetenv("SECURESHEETS_ORIGIN")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("SECURESHEETS_TOKEN"); got != "file-token" {
		t.Errorf("SECURESHEETS_TOKEN = %q, want file-token", got)
	}
	if got := os.Getenv("SECURESHEETS_ORIGIN"); got != "file-origin" {
		t.Errorf("SECURESHEETS_ORIGIN = %q, want file-origin", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing env file should be skipped, got %v", err)
	}
}
