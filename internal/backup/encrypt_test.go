package backup

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte(`{"version":1,"memories":[]}`)

	ciphertext, err := encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext should not equal plaintext")
	}

	got, err := decrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypt roundtrip mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	wrongKey := bytes.Repeat([]byte{0x24}, 32)

	ciphertext, err := encrypt(key, []byte("secret envelope"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := decrypt(wrongKey, ciphertext); err == nil {
		t.Fatal("expected decrypt with wrong key to fail")
	}
}

func TestEncryptRejectsBadKeyLength(t *testing.T) {
	if _, err := encrypt([]byte("too-short"), []byte("data")); err == nil {
		t.Fatal("expected error for non-32-byte key")
	}
}
