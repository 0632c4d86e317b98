package utils

import "testing"

func TestHMACSHA512(t *testing.T) {
	secret := []byte("sk_test_123")
	body := []byte(`{"event":"charge.success"}`)

	sig := SignHMACSHA512(secret, body)
	if len(sig) != 128 {
		t.Fatalf("signature length = %d, want 128 hex chars", len(sig))
	}
	if !VerifyHMACSHA512(secret, body, sig) {
		t.Error("valid signature rejected")
	}
	if VerifyHMACSHA512([]byte("other"), body, sig) {
		t.Error("signature accepted under the wrong secret")
	}
	if VerifyHMACSHA512(secret, []byte(`{"event":"charge.failed"}`), sig) {
		t.Error("signature accepted for a tampered body")
	}
	if VerifyHMACSHA512(secret, body, "not-hex") {
		t.Error("garbage signature accepted")
	}
}
