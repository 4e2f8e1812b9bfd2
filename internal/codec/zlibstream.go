package codec

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
)

// ZlibStreamSuffix terminates every logically complete chunk of a gateway
// zlib-stream transport-compressed connection. The Inflator below does not
// need to scan for it explicitly -- a persistent flate state machine fed one
// WebSocket message at a time naturally resolves sync-flush boundaries -- but
// it documents the wire contract described in SPEC_FULL.md §4.1/§6 and is
// used by tests to assert a fixture ends on a flush boundary.
var ZlibStreamSuffix = []byte{0x00, 0x00, 0xff, 0xff}

// Inflator decompresses one continuous zlib-stream connection. The stream
// uses context takeover: the compression dictionary persists across every
// message until the socket is torn down, so a single Inflator must live for
// the lifetime of one gateway connection and be discarded (never reused) on
// a fresh, non-resumed handshake.
//
// Feed is called once per inbound WebSocket message with that message's raw
// bytes; Next blocks until the decompressor has produced the one JSON value
// those bytes complete. The pairing holds because the gateway always closes
// a logical payload on a message boundary.
type Inflator struct {
	pw      *io.PipeWriter
	results chan inflateResult
}

type inflateResult struct {
	raw json.RawMessage
	err error
}

// NewInflator starts the background decompression goroutine. The zlib header
// is read lazily from the first Feed call, so construction never blocks.
func NewInflator() *Inflator {
	pr, pw := io.Pipe()
	inf := &Inflator{
		pw:      pw,
		results: make(chan inflateResult, 1),
	}
	go inf.run(pr)
	return inf
}

func (z *Inflator) run(pr *io.PipeReader) {
	defer close(z.results)

	zr, err := zlib.NewReader(pr)
	if err != nil {
		z.results <- inflateResult{err: err}
		return
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		z.results <- inflateResult{raw: raw, err: err}
		if err != nil {
			return
		}
	}
}

// Feed writes one raw compressed WebSocket message into the decompressor.
// It blocks until the decoder has consumed every byte, providing natural
// backpressure without an intermediate buffer.
func (z *Inflator) Feed(chunk []byte) error {
	_, err := z.pw.Write(chunk)
	return err
}

// Next returns the JSON value completed by the most recent Feed call.
func (z *Inflator) Next() (json.RawMessage, error) {
	r, ok := <-z.results
	if !ok {
		return nil, io.ErrClosedPipe
	}
	return r.raw, r.err
}

// Close tears down the decompressor. Callers must construct a fresh Inflator
// for the next connection attempt rather than reusing this one.
func (z *Inflator) Close() error {
	return z.pw.CloseWithError(io.EOF)
}
