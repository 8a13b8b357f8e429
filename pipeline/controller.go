// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/gapless/audio"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators a Controller plays through.
type Dependencies struct {
	Source   audio.AssetSource
	Registry *audio.Registry
	Sinks    audio.SinkFactory
}

// Controller plays an asset sequence gaplessly on one worker goroutine.
//
// Each asset gets a fresh codec. The sink is built from the first asset's
// format and shared by all later assets. While the current asset drains,
// the next asset's demuxer is opened as soon as the current one reports
// that its read-ahead cache reached the end of the asset.
type Controller struct {
	assets []string
	deps   Dependencies
	cfg    Config
	log    zerolog.Logger

	state atomic.Int32
	done  chan struct{}
	err   error

	mu        sync.Mutex
	started   bool
	canceled  bool
	stop      context.CancelFunc
	current   int
	extracted counter
	decoded   counter
	sink      audio.Sink
	sinkReady bool
	head      time.Duration

	// owned by the worker
	lookahead *demuxerHandle
	preloaded bool
}

// New returns a Controller for assets. The slice is copied.
func New(assets []string, deps Dependencies, cfg Config) (*Controller, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: asset source", ErrMissingDependency)
	case deps.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case deps.Sinks == nil:
		return nil, fmt.Errorf("%w: sink factory", ErrMissingDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Controller{
		assets:  slices.Clone(assets),
		deps:    deps,
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "pipeline").Logger(),
		done:    make(chan struct{}),
		current: -1,
	}, nil
}

// Start runs the worker. Calls after the first are no-ops.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	ctx, c.stop = context.WithCancel(ctx)
	if c.canceled {
		c.stop()
	}
	go c.run(ctx, c.stop)
}

// Cancel asks the worker to stop. It returns immediately; use Wait or Done
// to learn when every resource was released.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.canceled = true
	if c.stop != nil {
		c.stop()
	}
}

// Wait blocks until the worker exited and returns its error. Cancellation
// is not an error.
func (c *Controller) Wait() error {
	<-c.done
	return c.err
}

// Done is closed when the worker exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// State is the worker's current state. It is Idle before Start and again
// once the worker exited.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) setState(s State) { c.state.Store(int32(s)) }

// CurrentAsset is the index of the asset being played, -1 before the first
// and len(assets) after the last.
func (c *Controller) CurrentAsset() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

// ExtractedPosition is the absolute timestamp of the last compressed sample
// handed to a codec. It is unavailable until the sink exists.
func (c *Controller) ExtractedPosition() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.extracted.total(), c.sinkReady
}

// DecodedPosition is the absolute timestamp of the last PCM unit a codec
// produced. It is unavailable until the sink exists.
func (c *Controller) DecodedPosition() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.decoded.total(), c.sinkReady
}

// PlaybackPosition is how much audio the sink has played in this session.
func (c *Controller) PlaybackPosition() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sinkReady {
		return 0, false
	}
	if c.sink == nil {
		return c.head, true
	}
	return headPosition(c.sink), true
}

func headPosition(s audio.Sink) time.Duration {
	return audio.FramesToDuration(s.PlaybackHeadFrames(), s.SampleRate())
}

func (c *Controller) run(ctx context.Context, stop context.CancelFunc) {
	defer close(c.done)
	defer stop()

	c.log.Info().Int("assets", len(c.assets)).Msg("playback started")
	c.err = c.play(ctx)
	if c.err != nil {
		c.log.Error().Err(c.err).Msg("playback failed")
		return
	}
	c.log.Info().Msg("playback stopped")
}

func (c *Controller) play(ctx context.Context) error {
	finished := false
	defer func() {
		c.teardown(ctx, finished)
		c.setState(StateIdle)
	}()

	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("playback cancelled")
			return nil
		}

		c.setState(StatePerAssetSetup)
		index := c.advance()
		if index >= len(c.assets) {
			c.setState(StateFinished)
			finished = true
			return nil
		}

		if err := c.playAsset(ctx, index); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
}

func (c *Controller) advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current++
	return c.current
}

func (c *Controller) playAsset(ctx context.Context, index int) error {
	log := c.log.With().Int("index", index).Str("asset", c.assets[index]).Logger()

	dmx, adopted, err := c.takeDemuxer(index)
	if err != nil {
		return err
	}
	c.preloaded = false
	defer c.foldPositions()
	defer dmx.release(log)

	format, layout, err := selectTrack(dmx.demux)
	if err != nil {
		return err
	}
	log = log.With().
		Str("mime", format.MIME).
		Int("rate", format.SampleRate).
		Int("channels", format.Channels).
		Logger()

	codec, err := c.deps.Registry.NewCodec(format.MIME)
	if err != nil {
		return configError(err)
	}
	defer releaseCodec(codec, log)

	if err := codec.Configure(format); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
	}
	if err := codec.Start(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
	}

	if err := c.ensureSink(format, layout, log); err != nil {
		return err
	}

	log.Info().Dur("duration", format.Duration).Bool("preloaded", adopted).Msg("asset started")
	c.setState(StateDecoding)
	return c.decode(ctx, index, dmx, codec, log)
}

// takeDemuxer adopts the lookahead demuxer when it belongs to index and
// opens one otherwise.
func (c *Controller) takeDemuxer(index int) (*demuxerHandle, bool, error) {
	if la := c.lookahead; la != nil {
		c.lookahead = nil
		if la.index == index {
			return la, true, nil
		}
		la.release(c.log)
	}

	d, err := c.openDemuxer(index)
	return d, false, err
}

func releaseCodec(codec audio.Codec, log zerolog.Logger) {
	if err := codec.Stop(); err != nil {
		log.Warn().Err(err).Msg("stopping codec")
	}
	if err := codec.Release(); err != nil {
		log.Warn().Err(err).Msg("releasing codec")
	}
}

func (c *Controller) foldPositions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extracted.fold()
	c.decoded.fold()
}

func (c *Controller) ensureSink(format audio.TrackFormat, layout audio.ChannelLayout, log zerolog.Logger) error {
	if c.sink != nil {
		rate, sinkLayout := c.sink.SampleRate(), c.sink.Layout()
		if format.SampleRate == rate && layout == sinkLayout {
			return nil
		}
		if c.cfg.StrictFormat {
			return configError(fmt.Errorf("%w: %d Hz %s, sink plays %d Hz %s",
				ErrFormatMismatch, format.SampleRate, layout, rate, sinkLayout))
		}
		log.Warn().
			Int("sink_rate", rate).
			Stringer("sink_layout", sinkLayout).
			Msg("asset format differs from the sink, leaving the rate change to the sink")
		return nil
	}

	minSize := c.deps.Sinks.MinBufferSize(format.SampleRate, layout, audio.EncodingPCM16)
	size, err := SinkBufferSize(minSize, format.SampleRate, layout, audio.EncodingPCM16, c.cfg)
	if err != nil {
		return err
	}

	sink, err := c.deps.Sinks.NewSink(audio.SinkConfig{
		SampleRate: format.SampleRate,
		Layout:     layout,
		Encoding:   audio.EncodingPCM16,
		BufferSize: size,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSink, err)
	}
	if err := sink.Start(); err != nil {
		_ = sink.Close()
		return fmt.Errorf("%w: start: %w", ErrSink, err)
	}

	c.mu.Lock()
	c.sink = sink
	c.sinkReady = true
	c.mu.Unlock()

	log.Info().Int("min_buffer_size", minSize).Int("buffer_size", size).Msg("sink started")
	return nil
}

// decode runs the fill/drain loop of one asset until the codec signals end
// of stream, ctx is done or the codec starves.
func (c *Controller) decode(ctx context.Context, index int, dmx *demuxerHandle, codec audio.Codec, log zerolog.Logger) error {
	var sawInputEOS, sawOutputEOS bool
	starved := 0

	for !sawOutputEOS {
		if ctx.Err() != nil {
			return nil
		}
		starved++
		progress := false

		if !sawInputEOS {
			queued, eos, err := c.feed(dmx, codec, log)
			if err != nil {
				return err
			}
			progress = queued
			if eos {
				sawInputEOS = true
				c.setState(StateDraining)
			}
			c.preload(index, dmx, log)
		}

		out, status, err := codec.DequeueOutputBuffer(0)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
		}
		switch status {
		case audio.OutputBufferReady:
			progress = true
			c.mu.Lock()
			c.decoded.set(out.PTS)
			c.mu.Unlock()

			if len(out.Data) > 0 {
				starved = 0
				if _, err := c.sink.Write(ctx, out.Data); err != nil {
					_ = codec.ReleaseOutputBuffer(out.Slot)
					return fmt.Errorf("%w: write: %w", ErrSink, err)
				}
			}
			if err := codec.ReleaseOutputBuffer(out.Slot); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
			}
			sawOutputEOS = out.Flags&audio.FlagEndOfStream != 0

		case audio.OutputFormatChanged:
			progress = true
			f := codec.OutputFormat()
			log.Debug().Int("output_rate", f.SampleRate).Int("output_channels", f.Channels).Msg("codec output format changed")
			if err := c.sink.SetOutputRate(f.SampleRate); err != nil {
				log.Warn().Err(err).Int("output_rate", f.SampleRate).Msg("sink rejected output rate")
			}
		}

		if !sawOutputEOS && starved >= c.cfg.StarvationCeiling {
			log.Warn().Err(ErrStarvation).Int("iterations", starved).Msg("abandoning asset")
			return nil
		}

		if !progress {
			t := time.NewTimer(c.cfg.PollInterval)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}
	}

	log.Debug().Msg("asset ended")
	return nil
}

// feed moves one sample from the demuxer into the codec. Any read failure
// ends the asset's input.
func (c *Controller) feed(dmx *demuxerHandle, codec audio.Codec, log zerolog.Logger) (queued, eos bool, err error) {
	slot, ok := codec.DequeueInputBuffer(0)
	if !ok {
		return false, false, nil
	}

	n, rerr := dmx.demux.ReadSample(codec.InputBuffer(slot))
	if rerr != nil {
		if !errors.Is(rerr, io.EOF) {
			log.Warn().Err(rerr).Msg("demuxer read failed, ending input")
		}
		if err := codec.QueueInputBuffer(slot, 0, 0, audio.FlagEndOfStream); err != nil {
			return false, false, fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
		}
		return true, true, nil
	}

	pts := dmx.demux.SampleTime()
	if err := codec.QueueInputBuffer(slot, n, pts, 0); err != nil {
		return false, false, fmt.Errorf("%w: %s: %w", ErrCodec, dmx.id, err)
	}
	dmx.demux.Advance()

	c.mu.Lock()
	c.extracted.set(pts)
	c.mu.Unlock()
	return true, false, nil
}

// preload opens the next asset's demuxer once the current one needs no more
// I/O. It is tried at most once per asset and failures only cost the
// lookahead.
func (c *Controller) preload(index int, current *demuxerHandle, log zerolog.Logger) {
	if c.preloaded || c.lookahead != nil || index+1 >= len(c.assets) {
		return
	}
	if !current.demux.CachedToEnd() {
		return
	}
	c.preloaded = true

	next, err := c.openDemuxer(index + 1)
	if err != nil {
		log.Warn().Err(err).Str("next", c.assets[index+1]).Msg("lookahead preload failed")
		return
	}
	c.lookahead = next
	log.Debug().Str("next", next.id).Int64("cached_bytes", current.cache.Buffered()).Msg("lookahead demuxer opened")
}

// teardown releases the lookahead demuxer and the sink. The sink is drained
// first when the sequence played to its end.
func (c *Controller) teardown(ctx context.Context, finished bool) {
	if c.lookahead != nil {
		c.lookahead.release(c.log)
		c.lookahead = nil
	}

	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}

	if finished {
		if err := sink.Drain(ctx); err != nil {
			c.log.Warn().Err(err).Msg("draining sink")
		}
	}

	c.mu.Lock()
	c.head = headPosition(sink)
	c.sink = nil
	c.mu.Unlock()

	if err := sink.Close(); err != nil {
		c.log.Warn().Err(err).Msg("closing sink")
	}
}
