// SPDX-License-Identifier: EPL-2.0

// Package speaker plays PCM through the system audio device with
// github.com/faiface/beep.
//
// beep drives a single process-wide output, so a Factory opens the device
// once; later sinks must use the same sample rate.
package speaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/ik5/gapless/audio"
	"github.com/rs/zerolog"
)

const (
	// DefaultLatency is the device buffer beep mixes into.
	DefaultLatency = 100 * time.Millisecond

	resampleQuality = 4
)

// device is the process-wide output, swapped out in tests.
type device interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
}

type beepDevice struct{}

func (beepDevice) Init(sr beep.SampleRate, bufferSize int) error { return speaker.Init(sr, bufferSize) }
func (beepDevice) Play(s beep.Streamer)                         { speaker.Play(s) }
func (beepDevice) Lock()                                        { speaker.Lock() }
func (beepDevice) Unlock()                                      { speaker.Unlock() }
func (beepDevice) Clear()                                       { speaker.Clear() }

// Factory builds speaker sinks.
type Factory struct {
	// Latency of the device buffer. Zero means DefaultLatency.
	Latency time.Duration
	// Volume in powers of two, 0 leaves the signal untouched.
	Volume float64
	Logger zerolog.Logger

	dev     device
	mu      sync.Mutex
	rate    beep.SampleRate
	started bool
}

// NewFactory returns a Factory for the default audio device.
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{Logger: logger, dev: beepDevice{}}
}

func (f *Factory) latency() time.Duration {
	if f.Latency <= 0 {
		return DefaultLatency
	}
	return f.Latency
}

// MinBufferSize is one device buffer worth of frames.
func (f *Factory) MinBufferSize(sampleRate int, layout audio.ChannelLayout, enc audio.Encoding) int {
	frames := audio.DurationToFrames(f.latency(), sampleRate)
	return int(frames) * layout.Channels() * enc.BytesPerSample()
}

func (f *Factory) NewSink(cfg audio.SinkConfig) (audio.Sink, error) {
	if cfg.Encoding != audio.EncodingPCM16 {
		return nil, fmt.Errorf("speaker: %w: encoding %s", audio.ErrInvalidFormat, cfg.Encoding)
	}
	if cfg.Layout.Channels() == 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("speaker: %w: %d Hz %s", audio.ErrInvalidFormat, cfg.SampleRate, cfg.Layout)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dev == nil {
		f.dev = beepDevice{}
	}
	sr := beep.SampleRate(cfg.SampleRate)
	if f.started && sr != f.rate {
		return nil, fmt.Errorf("speaker: device runs at %d Hz, sink wants %d Hz", f.rate, sr)
	}
	if !f.started {
		if err := f.dev.Init(sr, sr.N(f.latency())); err != nil {
			return nil, fmt.Errorf("speaker: init: %w", err)
		}
		f.rate = sr
		f.started = true
		f.Logger.Debug().Int("sample_rate", cfg.SampleRate).Dur("latency", f.latency()).Msg("speaker initialized")
	}

	q := newRing(cfg.BufferSize, cfg.Layout.Channels())
	s := &Sink{
		dev:       f.dev,
		cfg:       cfg,
		ring:      q,
		resampler: beep.ResampleRatio(resampleQuality, 1, q),
		latency:   f.latency(),
		logger:    f.Logger,
	}
	s.out = s.resampler
	if f.Volume != 0 {
		s.out = &effects.Volume{Streamer: s.resampler, Base: 2, Volume: f.Volume}
	}
	return s, nil
}

// Sink is a ring buffer played by the speaker.
type Sink struct {
	dev       device
	cfg       audio.SinkConfig
	ring      *ring
	resampler *beep.Resampler
	out       beep.Streamer
	latency   time.Duration
	logger    zerolog.Logger

	once sync.Once
}

func (s *Sink) Start() error {
	s.once.Do(func() { s.dev.Play(s.out) })
	return nil
}

func (s *Sink) Write(ctx context.Context, p []byte) (int, error) {
	return s.ring.write(ctx, p)
}

// SetOutputRate plays PCM as if it were sampled at sampleRate, resampling
// to the device rate. The new ratio applies from the next frame the device
// pulls, so frames of the previous rate still in the ring are played at it
// too.
func (s *Sink) SetOutputRate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("speaker: %w: %d Hz", audio.ErrInvalidFormat, sampleRate)
	}

	s.dev.Lock()
	s.resampler.SetRatio(float64(sampleRate) / float64(s.cfg.SampleRate))
	s.dev.Unlock()
	return nil
}

func (s *Sink) PlaybackHeadFrames() int64 { return s.ring.playedFrames() }

func (s *Sink) SampleRate() int { return s.cfg.SampleRate }

func (s *Sink) Layout() audio.ChannelLayout { return s.cfg.Layout }

// Drain waits for the ring to empty and then for the device buffer to play
// out.
func (s *Sink) Drain(ctx context.Context) error {
	if err := s.ring.drain(ctx); err != nil {
		return err
	}

	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) Close() error {
	s.ring.close()
	s.dev.Clear()

	s.ring.mu.Lock()
	underruns := s.ring.underruns
	s.ring.mu.Unlock()
	s.logger.Debug().Int64("underruns", underruns).Int64("played_frames", s.PlaybackHeadFrames()).Msg("speaker sink closed")
	return nil
}
