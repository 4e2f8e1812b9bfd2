// Package codec provides the wire-format helpers shared by the main gateway,
// the voice gateway, and the REST client: JSON encoding, zlib-stream
// decompression, and RTP/AEAD framing for voice media.
package codec

import "github.com/goccy/go-json"

// Marshal and Unmarshal indirect through goccy/go-json so every payload in
// the engine (gateway dispatch, REST bodies, persisted config) goes through
// one fast JSON codec instead of mixing stdlib encoding/json call sites.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent is used for human-read persisted files (profile/config JSON).
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
