// SPDX-License-Identifier: EPL-2.0

// Package wavfile is a sink that records the pipeline output into a WAV file
// instead of playing it. The playback head is the number of frames written,
// so a file sink never holds anything back.
package wavfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/utils"
)

var (
	ErrClosed     = errors.New("wavfile: sink closed")
	ErrRateChange = errors.New("wavfile: output rate cannot change once recording")
)

const (
	wavFormatPCM = 1
	chunkLatency = 50 * time.Millisecond
)

// Factory creates one WAV file per sink at Path.
type Factory struct {
	Path string
}

func (f Factory) MinBufferSize(sampleRate int, layout audio.ChannelLayout, enc audio.Encoding) int {
	return int(audio.DurationToFrames(chunkLatency, sampleRate)) * layout.Channels() * enc.BytesPerSample()
}

func (f Factory) NewSink(cfg audio.SinkConfig) (audio.Sink, error) {
	if cfg.Encoding != audio.EncodingPCM16 || cfg.Layout.Channels() == 0 {
		return nil, fmt.Errorf("wavfile: %w: %s %s", audio.ErrInvalidFormat, cfg.Layout, cfg.Encoding)
	}

	out, err := os.Create(f.Path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: %w", err)
	}

	channels := cfg.Layout.Channels()
	return &Sink{
		cfg:  cfg,
		file: out,
		enc:  wav.NewEncoder(out, cfg.SampleRate, 16, channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: cfg.SampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

type Sink struct {
	cfg  audio.SinkConfig
	file *os.File
	enc  *wav.Encoder

	mu      sync.Mutex
	buf     *goaudio.IntBuffer
	frames  int64
	started bool
	closed  bool
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	return nil
}

func (s *Sink) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	frameSize := s.cfg.Layout.Channels() * 2
	p = p[:len(p)-len(p)%frameSize]
	if len(p) == 0 {
		return 0, nil
	}
	s.buf.Data = s.buf.Data[:0]
	for i := range len(p) / 2 {
		s.buf.Data = append(s.buf.Data, int(utils.PCM16At(p, i)))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return 0, fmt.Errorf("wavfile: write: %w", err)
	}
	s.frames += int64(len(p) / frameSize)
	return len(p), nil
}

func (s *Sink) SetOutputRate(sampleRate int) error {
	if sampleRate != s.cfg.SampleRate {
		return fmt.Errorf("%w: %d Hz to %d Hz", ErrRateChange, s.cfg.SampleRate, sampleRate)
	}
	return nil
}

func (s *Sink) PlaybackHeadFrames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frames
}

func (s *Sink) SampleRate() int { return s.cfg.SampleRate }

func (s *Sink) Layout() audio.ChannelLayout { return s.cfg.Layout }

func (s *Sink) Drain(context.Context) error { return nil }

// Close finalizes the WAV header and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.enc.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("wavfile: close: %w", err)
	}
	return nil
}
