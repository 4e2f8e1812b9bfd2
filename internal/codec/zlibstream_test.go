package codec

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// compressStream writes each value as its own sync-flushed chunk of one
// continuous zlib stream, mirroring how the gateway sends one JSON payload
// per WebSocket message over a single context-takeover compressor.
func compressStream(t *testing.T, values [][]byte) [][]byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	chunks := make([][]byte, 0, len(values))
	for _, v := range values {
		if _, err := zw.Write(v); err != nil {
			t.Fatalf("zw.Write: %v", err)
		}
		if err := zw.Flush(); err != nil {
			t.Fatalf("zw.Flush: %v", err)
		}
		chunk := make([]byte, buf.Len())
		copy(chunk, buf.Bytes())
		buf.Reset()
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestInflatorSequentialMessages(t *testing.T) {
	values := [][]byte{
		[]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`),
		[]byte(`{"op":0,"t":"READY","s":1,"d":{}}`),
		[]byte(`{"op":11}`),
	}
	chunks := compressStream(t, values)
	for i, c := range chunks {
		if !bytes.HasSuffix(c, ZlibStreamSuffix) {
			t.Fatalf("chunk %d missing sync-flush suffix", i)
		}
	}

	inf := NewInflator()
	defer inf.Close()

	for i, chunk := range chunks {
		if err := inf.Feed(chunk); err != nil {
			t.Fatalf("Feed(%d): %v", i, err)
		}
		raw, err := inf.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if !bytes.Equal(bytes.TrimSpace(raw), values[i]) {
			t.Fatalf("chunk %d: got %s, want %s", i, raw, values[i])
		}
	}
}
