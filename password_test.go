package whisperwall_test

import (
	"bytes"
	"testing"

	ww "github.com/whisperwall/whisperwall"
)

func TestHashPasswordRoundtrip(t *testing.T) {
	hash, salt, err := ww.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatal("Expected non-empty hash and salt")
	}
	if bytes.Equal(hash, []byte("correct horse battery staple")) {
		t.Error("Hash must never equal the plaintext")
	}

	if !ww.VerifyPassword("correct horse battery staple", hash, salt) {
		t.Error("Expected correct password to verify")
	}
	if ww.VerifyPassword("correct horse battery stapl", hash, salt) {
		t.Error("Expected wrong password to fail")
	}
}

func TestHashPasswordDistinctSalts(t *testing.T) {
	// Two records choosing the same password must not share hashes
	hash1, salt1, err := ww.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	hash2, salt2, err := ww.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if bytes.Equal(salt1, salt2) {
		t.Error("Expected distinct salts for separate hash calls")
	}
	if bytes.Equal(hash1, hash2) {
		t.Error("Expected distinct hashes for the same password under distinct salts")
	}
}

func TestVerifyPasswordMissingCredentials(t *testing.T) {
	hash, salt, err := ww.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if ww.VerifyPassword("password123", nil, salt) {
		t.Error("Expected verification to fail with no stored hash")
	}
	if ww.VerifyPassword("password123", hash, nil) {
		t.Error("Expected verification to fail with no stored salt")
	}
}
