package codec

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestAEADRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mode VoiceEncryptionMode
	}{
		{"xchacha20poly1305", ModeXChaCha20Poly1305RTPSize},
		{"aes256gcm", ModeAES256GCMRTPSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				t.Fatalf("rand.Read: %v", err)
			}
			hdr := []byte{0x80, 0x78, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03}
			payload := make([]byte, 1200)
			if _, err := rand.Read(payload); err != nil {
				t.Fatalf("rand.Read: %v", err)
			}
			var counter [4]byte
			counter[0], counter[1], counter[2], counter[3] = 0, 0, 0, 7

			ciphertext, err := Encrypt(tt.mode, key, hdr, payload, counter)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			plain, err := Decrypt(tt.mode, key, hdr, ciphertext, counter)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(plain, payload) {
				t.Fatalf("round-trip mismatch")
			}
		})
	}
}

func TestBuildNonceCounterLeading(t *testing.T) {
	counter := [4]byte{0x01, 0x02, 0x03, 0x04}

	nonce := BuildNonce(ModeAES256GCMRTPSize, counter)
	if len(nonce) != 12 {
		t.Fatalf("want 12-byte nonce, got %d", len(nonce))
	}
	if !bytes.Equal(nonce[:4], counter[:]) {
		t.Fatalf("counter not in leading bytes: %x", nonce)
	}
	for _, b := range nonce[4:] {
		if b != 0 {
			t.Fatalf("trailing bytes not zero: %x", nonce)
		}
	}

	xnonce := BuildNonce(ModeXChaCha20Poly1305RTPSize, counter)
	if len(xnonce) != 24 {
		t.Fatalf("want 24-byte nonce, got %d", len(xnonce))
	}
}
