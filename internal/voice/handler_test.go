package voice

import (
	"testing"

	"github.com/pion/rtp"
)

func buildRTPPacket(t *testing.T, extension bool, csrc int, ciphertext []byte, counter [4]byte) []byte {
	t.Helper()
	hdr := rtp.Header{
		Version:        2,
		SequenceNumber: 1,
		Timestamp:      1000,
		SSRC:           42,
	}
	for i := 0; i < csrc; i++ {
		hdr.CSRC = append(hdr.CSRC, uint32(i+1))
	}
	if extension {
		hdr.Extension = true
		hdr.ExtensionProfile = 0xBEDE
		if err := hdr.SetExtension(0, []byte{0, 0, 0, 0}); err != nil {
			t.Fatalf("set extension: %v", err)
		}
	}
	raw, err := hdr.Marshal()
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	packet := append(raw, ciphertext...)
	packet = append(packet, counter[:]...)
	return packet
}

func TestSplitRTPNoExtensionNoCSRC(t *testing.T) {
	ciphertext := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	counter := [4]byte{9, 9, 9, 9}
	packet := buildRTPPacket(t, false, 0, ciphertext, counter)

	header, ct, ctr, err := splitRTP(packet)
	if err != nil {
		t.Fatalf("splitRTP: %v", err)
	}
	if len(header) != 12 {
		t.Errorf("expected 12-byte header, got %d", len(header))
	}
	if string(ct) != string(ciphertext) {
		t.Errorf("ciphertext mismatch: got %v want %v", ct, ciphertext)
	}
	if string(ctr) != string(counter[:]) {
		t.Errorf("counter mismatch: got %v want %v", ctr, counter)
	}
}

func TestSplitRTPWithCSRC(t *testing.T) {
	ciphertext := []byte{1, 2, 3, 4}
	counter := [4]byte{5, 6, 7, 8}
	packet := buildRTPPacket(t, false, 2, ciphertext, counter)

	header, _, _, err := splitRTP(packet)
	if err != nil {
		t.Fatalf("splitRTP: %v", err)
	}
	if len(header) != 12+2*4 {
		t.Errorf("expected header with 2 csrc entries, got %d bytes", len(header))
	}
}

func TestSplitRTPTooShort(t *testing.T) {
	_, _, _, err := splitRTP([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for short packet")
	}
}

func TestHandlerQueueDropsWhenFull(t *testing.T) {
	h := &Handler{queue: make(chan PCMFrame, 2)}
	for i := 0; i < 5; i++ {
		select {
		case h.queue <- PCMFrame{Samples: []int16{int16(i)}}:
		default:
		}
	}
	if len(h.queue) != 2 {
		t.Errorf("expected queue capped at 2, got %d", len(h.queue))
	}
}
