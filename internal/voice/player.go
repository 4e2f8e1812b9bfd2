package voice

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// Player drains a Handler's decoded PCM frames to the default output
// device. Only playback is wired — the media path's scope is receive-only.
type Player struct {
	logger zerolog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPlayer opens the default output device at 48kHz stereo, matching the
// media path's mandatory sample format.
func NewPlayer(logger zerolog.Logger) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	outputDev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	buf := make([]float32, frameSize)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: channels,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: frameSize / channels,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}

	return &Player{
		logger: logger.With().Str("component", "voice-player").Logger(),
		stream: stream,
		buf:    buf,
		stop:   make(chan struct{}),
	}, nil
}

// Run drains frames until the source channel closes or Close is called.
func (p *Player) Run(frames <-chan PCMFrame) {
	for {
		select {
		case <-p.stop:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			p.writeFrame(frame)
		}
	}
}

func (p *Player) writeFrame(frame PCMFrame) {
	n := len(frame.Samples)
	if n > len(p.buf) {
		n = len(p.buf)
	}
	for i := 0; i < n; i++ {
		p.buf[i] = float32(frame.Samples[i]) / 32768.0
	}
	for i := n; i < len(p.buf); i++ {
		p.buf[i] = 0
	}
	if err := p.stream.Write(); err != nil {
		p.logger.Debug().Err(err).Msg("voice playback write failed")
	}
}

// Close stops the output stream and releases PortAudio resources.
func (p *Player) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stream != nil {
			p.stream.Stop()
			p.stream.Close()
		}
		portaudio.Terminate()
	})
}
