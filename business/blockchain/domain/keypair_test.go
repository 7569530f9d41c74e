package domain

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/fd1az/swap-router/internal/apperror"
)

func TestParseKeypair_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	parsed, err := ParseKeypair(kp.SecretKey())
	if err != nil {
		t.Fatalf("ParseKeypair: %v", err)
	}
	if parsed.PublicKey() != kp.PublicKey() {
		t.Errorf("public key changed: %s != %s", parsed.PublicKey(), kp.PublicKey())
	}
	if !IsOnCurve(kp.PublicKey()) {
		t.Error("generated key must be on the curve")
	}

	msg := []byte("hello")
	if !ed25519.Verify(parsed.PublicKeyBytes(), msg, parsed.Sign(msg)) {
		t.Error("signature does not verify")
	}
}

func TestParseKeypair_Invalid(t *testing.T) {
	kp, _ := GenerateKeypair()
	other, _ := GenerateKeypair()

	raw, _ := base58.Decode(kp.SecretKey())
	otherRaw, _ := base58.Decode(other.SecretKey())
	mismatched := append(append([]byte{}, raw[:32]...), otherRaw[32:]...)

	tests := []struct {
		name   string
		secret string
	}{
		{"not base58", "0OIl"},
		{"seed only", base58.Encode(raw[:32])},
		{"public half of another key", base58.Encode(mismatched)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKeypair(tt.secret)
			if apperror.GetCode(err) != apperror.CodeInvalidKey {
				t.Errorf("expected INVALID_KEY, got %v", err)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	if IsOnCurve("not-base58!") {
		t.Error("garbage must not be on curve")
	}
	if !IsOnCurve("So11111111111111111111111111111111111111112") {
		t.Error("wrapped SOL mint is an ed25519 point")
	}
	// 32 bytes of 0x02 do not decode to a point
	if IsOnCurve("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR") {
		t.Error("expected off-curve bytes to be rejected")
	}
}
