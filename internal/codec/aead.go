package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// VoiceEncryptionMode names the AEAD transport modes SPEC_FULL.md §4.5/§6
// requires the voice media path to support.
type VoiceEncryptionMode string

const (
	ModeXChaCha20Poly1305RTPSize VoiceEncryptionMode = "aead_xchacha20_poly1305_rtpsize"
	ModeAES256GCMRTPSize         VoiceEncryptionMode = "aead_aes256_gcm_rtpsize"
)

// PreferredModes is the order the voice signalling layer offers to the
// server when negotiating SELECT_PROTOCOL; XChaCha20-Poly1305 is preferred
// and AES-256-GCM is the fallback, per §4.5.
var PreferredModes = []VoiceEncryptionMode{ModeXChaCha20Poly1305RTPSize, ModeAES256GCMRTPSize}

// NonceSize returns the AEAD nonce length for mode: 24 bytes for
// XChaCha20-Poly1305, 12 bytes for AES-256-GCM.
func NonceSize(mode VoiceEncryptionMode) int {
	if mode == ModeXChaCha20Poly1305RTPSize {
		return chacha20poly1305.NonceSizeX
	}
	return 12
}

// BuildNonce copies the trailing 4-byte RTP counter into the leading bytes
// of a zero-filled nonce buffer sized for mode, per §4.5 step 4 / §6.
func BuildNonce(mode VoiceEncryptionMode, counter [4]byte) []byte {
	nonce := make([]byte, NonceSize(mode))
	copy(nonce, counter[:])
	return nonce
}

// AEAD constructs the cipher.AEAD for mode and secretKey (32 bytes, as
// latched from SESSION_DESCRIPTION).
func AEAD(mode VoiceEncryptionMode, secretKey []byte) (cipher.AEAD, error) {
	switch mode {
	case ModeXChaCha20Poly1305RTPSize:
		return chacha20poly1305.NewX(secretKey)
	case ModeAES256GCMRTPSize:
		block, err := aes.NewCipher(secretKey)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("codec: unsupported voice encryption mode %q", mode)
	}
}

// Decrypt opens ciphertext with associated data hdr (the RTP header bytes),
// using the nonce built from the packet's trailing counter.
func Decrypt(mode VoiceEncryptionMode, secretKey []byte, hdr, ciphertext []byte, counter [4]byte) ([]byte, error) {
	aead, err := AEAD(mode, secretKey)
	if err != nil {
		return nil, err
	}
	nonce := BuildNonce(mode, counter)
	return aead.Open(nil, nonce, ciphertext, hdr)
}

// Encrypt seals plaintext with associated data hdr, returning ciphertext
// with the AEAD tag appended. Used by round-trip tests and by outbound
// voice send paths should the engine ever transmit audio.
func Encrypt(mode VoiceEncryptionMode, secretKey []byte, hdr, plaintext []byte, counter [4]byte) ([]byte, error) {
	aead, err := AEAD(mode, secretKey)
	if err != nil {
		return nil, err
	}
	nonce := BuildNonce(mode, counter)
	return aead.Seal(nil, nonce, plaintext, hdr), nil
}
