package voice

import (
	"net"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"gopkg.in/hraban/opus.v2"

	"github.com/discord-terminal/engine/internal/codec"
)

const (
	sampleRate = 48000
	channels   = 2
	frameSize  = sampleRate / 50 * channels // 20ms frame at 48kHz stereo
	udpReadBuf = 4096
)

// playbackQueueCapacity bounds decoded PCM frames in flight; a call with no
// player draining it (headless engine run) fills and drops rather than
// growing unbounded.
const playbackQueueCapacity = 50

// PCMFrame is one decoded, interleaved stereo frame ready for playback.
type PCMFrame struct {
	Samples []int16
}

// Handler owns a call's UDP socket once SESSION_DESCRIPTION is latched: it
// receives RTP packets, decrypts them with the negotiated AEAD mode, decodes
// Opus, and feeds a bounded playback queue.
type Handler struct {
	udp       *net.UDPConn
	secretKey []byte
	mode      codec.VoiceEncryptionMode
	logger    zerolog.Logger

	decoder *opus.Decoder

	queue    chan PCMFrame
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler constructs a Handler bound to an already-connected UDP socket.
func NewHandler(udp *net.UDPConn, secretKey []byte, mode codec.VoiceEncryptionMode, logger zerolog.Logger) *Handler {
	return &Handler{
		udp:       udp,
		secretKey: secretKey,
		mode:      mode,
		logger:    logger.With().Str("component", "voice-handler").Logger(),
		queue:     make(chan PCMFrame, playbackQueueCapacity),
		stop:      make(chan struct{}),
	}
}

// Start begins the receive/decode loop in the background. The caller drains
// Frames() to actually play audio; Start does not block.
func (h *Handler) Start() {
	decoder, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		h.logger.Error().Err(err).Msg("create opus decoder")
		return
	}
	h.decoder = decoder
	go h.receiveLoop()
}

// Stop signals the receive loop to end; the loop checks it before each UDP
// read. The playback queue is not closed. Safe to call more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Frames returns the channel of decoded PCM frames ready for playback.
func (h *Handler) Frames() <-chan PCMFrame { return h.queue }

func (h *Handler) receiveLoop() {
	buf := make([]byte, udpReadBuf)
	pcm := make([]int16, frameSize)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := h.udp.Read(buf)
		if err != nil {
			h.logger.Debug().Err(err).Msg("voice udp read ended")
			return
		}
		if n == 0 {
			continue
		}
		data := buf[:n]

		if len(data) >= 2 && data[1] >= 200 && data[1] <= 204 {
			if packets, rtcpErr := rtcp.Unmarshal(data); rtcpErr == nil {
				h.logger.Debug().Int("packets", len(packets)).Msg("skipped rtcp packet")
			}
			continue
		}
		if len(data) < 12 {
			continue
		}

		header, ciphertext, counter, err := splitRTP(data)
		if err != nil {
			continue
		}

		var counterArr [4]byte
		copy(counterArr[:], counter)

		plaintext, err := codec.Decrypt(h.mode, h.secretKey, header, ciphertext, counterArr)
		if err != nil {
			h.logger.Debug().Err(err).Msg("voice packet decrypt failed")
			continue
		}
		// First 8 bytes are the opus RTP extension the gateway prepends;
		// strip them to reach the raw opus payload.
		if len(plaintext) <= 8 {
			continue
		}
		opusPayload := plaintext[8:]

		n, err = h.decoder.Decode(opusPayload, pcm)
		if err != nil {
			h.logger.Debug().Err(err).Msg("opus decode failed")
			continue
		}

		frame := make([]int16, n*channels)
		copy(frame, pcm[:n*channels])

		select {
		case h.queue <- PCMFrame{Samples: frame}:
		default:
			// playback queue full and nothing is draining it; drop frame.
		}
	}
}

// splitRTP separates an RTP-size-framed packet into its header (associated
// data), ciphertext, and trailing 4-byte counter. The header's length
// (including any CSRC list and extension) comes from pion/rtp's own parser
// rather than hand-rolled bit math; the trailing 4 bytes are the AEAD
// nonce counter the media framing appends after the encrypted payload.
func splitRTP(data []byte) (header, ciphertext, counter []byte, err error) {
	if len(data) < 16 {
		return nil, nil, nil, errShortPacket
	}

	hdr := rtp.Header{}
	cutoff, err := hdr.Unmarshal(data)
	if err != nil {
		return nil, nil, nil, err
	}
	if cutoff+4 > len(data) {
		return nil, nil, nil, errShortPacket
	}

	header = data[:cutoff]
	counter = data[len(data)-4:]
	ciphertext = data[cutoff : len(data)-4]
	return header, ciphertext, counter, nil
}

var errShortPacket = shortPacketError{}

type shortPacketError struct{}

func (shortPacketError) Error() string { return "voice: rtp packet too short to frame" }
