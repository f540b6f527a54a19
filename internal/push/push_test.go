package push

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key is a P-256 scalar, at most 32 bytes
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) == 0 || len(privBytes) > 32 {
		t.Errorf("private key length = %d, want 1..32", len(privBytes))
	}

	// Generate again, should be different
	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestServiceConfigured(t *testing.T) {
	if NewService("", "", "").Configured() {
		t.Error("empty keys should not be configured")
	}
	if !NewService("pub", "priv", "").Configured() {
		t.Error("keys present should be configured")
	}
}

func TestServiceDefaultSubscriber(t *testing.T) {
	svc := NewService("pub", "priv", "")
	if svc.subscriber == "" {
		t.Error("expected a default subscriber address")
	}
	svc = NewService("pub", "priv", "mailto:admin@example.com")
	if svc.subscriber != "mailto:admin@example.com" {
		t.Errorf("subscriber = %q, want mailto:admin@example.com", svc.subscriber)
	}
}
