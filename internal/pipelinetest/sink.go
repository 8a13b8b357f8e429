// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/gapless/audio"
)

var ErrSinkClosed = errors.New("fake sink closed")

// SinkFactory builds recording sinks.
type SinkFactory struct {
	t *Tracker

	// MinSize overrides MinBufferSize when non-zero.
	MinSize int
	// NewErr fails NewSink.
	NewErr error
	// Block, when set, makes every Write wait until it is closed.
	Block chan struct{}

	mu    sync.Mutex
	sinks []*Sink
}

func NewSinkFactory(t *Tracker) *SinkFactory {
	return &SinkFactory{t: t}
}

// MinBufferSize is 20ms of audio unless MinSize is set.
func (f *SinkFactory) MinBufferSize(sampleRate int, layout audio.ChannelLayout, enc audio.Encoding) int {
	if f.MinSize != 0 {
		return f.MinSize
	}
	return int(audio.DurationToFrames(20*time.Millisecond, sampleRate)) * layout.Channels() * enc.BytesPerSample()
}

func (f *SinkFactory) NewSink(cfg audio.SinkConfig) (audio.Sink, error) {
	if f.NewErr != nil {
		return nil, f.NewErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s := &Sink{
		Config: cfg,
		t:      f.t,
		name:   fmt.Sprintf("sink#%d", len(f.sinks)+1),
		block:  f.Block,
	}
	f.sinks = append(f.sinks, s)
	f.t.acquire(KindSink, s.name)
	return s, nil
}

// Sinks returns every sink built so far.
func (f *SinkFactory) Sinks() []*Sink {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*Sink(nil), f.sinks...)
}

// Sink records everything written to it and plays it instantly.
type Sink struct {
	Config audio.SinkConfig

	t     *Tracker
	name  string
	block chan struct{}

	mu      sync.Mutex
	data    []byte
	rates   []int
	started bool
	drained bool
	closed  bool
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	return nil
}

func (s *Sink) Write(ctx context.Context, p []byte) (int, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSinkClosed
	}
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *Sink) SetOutputRate(sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates = append(s.rates, sampleRate)
	return nil
}

func (s *Sink) frameSize() int {
	return s.Config.Layout.Channels() * s.Config.Encoding.BytesPerSample()
}

func (s *Sink) PlaybackHeadFrames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fs := s.frameSize(); fs > 0 {
		return int64(len(s.data) / fs)
	}
	return 0
}

func (s *Sink) SampleRate() int { return s.Config.SampleRate }

func (s *Sink) Layout() audio.ChannelLayout { return s.Config.Layout }

func (s *Sink) Drain(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drained = true
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.t.release(KindSink, s.name)
	return nil
}

// Data returns a copy of the PCM written so far.
func (s *Sink) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.data...)
}

// Rates lists the SetOutputRate calls.
func (s *Sink) Rates() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int(nil), s.rates...)
}

func (s *Sink) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

func (s *Sink) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.drained
}

func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
