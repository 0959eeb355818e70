package secrets

import (
	"strings"
	"testing"

	dErrors "sigil/pkg/domain-errors"
)

func TestRandomToken(t *testing.T) {
	t.Run("tokens are URL safe and unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			tok, err := RandomToken(TransactionTokenBytes)
			if err != nil {
				t.Fatalf("RandomToken: %v", err)
			}
			if strings.ContainsAny(tok, "+/=") {
				t.Fatalf("token %q is not URL safe", tok)
			}
			if seen[tok] {
				t.Fatalf("duplicate token %q", tok)
			}
			seen[tok] = true
		}
	})

	t.Run("verification codes stay short", func(t *testing.T) {
		code, err := RandomToken(VerificationCodeBytes)
		if err != nil {
			t.Fatalf("RandomToken: %v", err)
		}
		// 8 bytes -> 11 base64url chars, human-typeable
		if len(code) != 11 {
			t.Fatalf("expected 11-char code, got %d (%q)", len(code), code)
		}
	})
}

func TestHashVerify(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		hash, err := Hash("correct horse")
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if err := Verify("correct horse", hash); err != nil {
			t.Fatalf("Verify: %v", err)
		}
	})

	t.Run("mismatch returns unauthorized", func(t *testing.T) {
		hash, err := Hash("correct horse")
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		err = Verify("battery staple", hash)
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		if _, err := Hash(""); !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			t.Fatalf("expected invalid_input for empty secret")
		}
	})
}
