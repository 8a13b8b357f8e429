// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// PacketDecoder is a synchronous decoder for one compressed stream. Output is
// always interleaved PCM16 little-endian.
type PacketDecoder interface {
	Init(format TrackFormat) error
	// Format is the PCM format Decode currently produces.
	Format() TrackFormat
	// Decode decodes packet and appends the PCM to out.
	Decode(packet []byte, out []byte) ([]byte, error)
	// Flush appends whatever the decoder still holds at end of stream.
	Flush(out []byte) ([]byte, error)
	Close() error
}

const (
	defaultInputSlots    = 4
	defaultInputSize     = 64 * 1024
	defaultPendingOutput = 8
)

type codecState int

const (
	stateUninitialized codecState = iota
	stateConfigured
	stateRunning
	stateReleased
)

type pendingUnit struct {
	status OutputStatus
	format TrackFormat
	data   []byte
	pts    time.Duration
	flags  BufferFlags
}

// SlotCodec drives a PacketDecoder through the Codec slot protocol. Decoding
// happens inside QueueInputBuffer, so the dequeue calls never wait and their
// timeouts are ignored. Decoded output is trimmed by the track's
// EncoderDelay and TotalFrames.
type SlotCodec struct {
	name string
	dec  PacketDecoder

	state  codecState
	format TrackFormat

	in       [][]byte
	free     []int
	inUse    []bool
	inputEOS bool

	pending  []pendingUnit
	dequeued map[int]struct{}
	nextSlot int

	announced TrackFormat // last format queued as a change
	current   TrackFormat // format the consumer has seen

	skipped  int64
	emitted  int64
	segBase  time.Duration
	segStart int64
	basePTS  time.Duration
	baseSet  bool

	scratch []byte
}

func NewSlotCodec(name string, dec PacketDecoder) *SlotCodec {
	return &SlotCodec{
		name:     name,
		dec:      dec,
		dequeued: make(map[int]struct{}),
	}
}

func (c *SlotCodec) Configure(format TrackFormat) error {
	if c.state != stateUninitialized && c.state != stateConfigured {
		return fmt.Errorf("%s: configure: %w", c.name, ErrCodecState)
	}
	if err := c.dec.Init(format); err != nil {
		return fmt.Errorf("%s: configure: %w", c.name, err)
	}

	size := max(format.MaxInputSize, defaultInputSize)
	c.in = make([][]byte, defaultInputSlots)
	c.inUse = make([]bool, defaultInputSlots)
	for i := range c.in {
		c.in[i] = make([]byte, size)
	}
	c.format = format
	c.state = stateConfigured
	c.reset()
	return nil
}

func (c *SlotCodec) reset() {
	c.free = c.free[:0]
	for i := range c.in {
		c.free = append(c.free, i)
		c.inUse[i] = false
	}
	c.pending = nil
	clear(c.dequeued)
	c.inputEOS = false
	c.announced = TrackFormat{}
	c.current = TrackFormat{}
	c.skipped, c.emitted = 0, 0
	c.segBase, c.segStart = 0, 0
	c.basePTS, c.baseSet = 0, false
}

func (c *SlotCodec) Start() error {
	if c.state != stateConfigured {
		return fmt.Errorf("%s: start: %w", c.name, ErrCodecState)
	}
	c.state = stateRunning
	return nil
}

func (c *SlotCodec) DequeueInputBuffer(time.Duration) (int, bool) {
	if c.state != stateRunning || c.inputEOS || len(c.free) == 0 {
		return -1, false
	}
	if len(c.pending) >= defaultPendingOutput {
		return -1, false
	}
	slot := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.inUse[slot] = true
	return slot, true
}

func (c *SlotCodec) InputBuffer(slot int) []byte {
	if slot < 0 || slot >= len(c.in) {
		return nil
	}
	return c.in[slot]
}

func (c *SlotCodec) QueueInputBuffer(slot, size int, pts time.Duration, flags BufferFlags) error {
	if c.state != stateRunning {
		return fmt.Errorf("%s: queue input: %w", c.name, ErrCodecState)
	}
	if slot < 0 || slot >= len(c.in) || !c.inUse[slot] || size < 0 || size > len(c.in[slot]) {
		return fmt.Errorf("%s: queue input %d: %w", c.name, slot, ErrInvalidSlot)
	}
	defer c.recycle(slot)

	if !c.baseSet && size > 0 {
		c.basePTS = pts
		c.baseSet = true
	}

	if size > 0 {
		out, err := c.dec.Decode(c.in[slot][:size], c.scratch[:0])
		if err != nil {
			return fmt.Errorf("%s: decode at %v: %w", c.name, pts, err)
		}
		c.scratch = out
		c.emit(out)
	}

	if flags&FlagEndOfStream != 0 {
		c.inputEOS = true
		out, err := c.dec.Flush(c.scratch[:0])
		if err != nil {
			return fmt.Errorf("%s: flush: %w", c.name, err)
		}
		c.scratch = out
		c.emit(out)
		c.pending = append(c.pending, pendingUnit{
			status: OutputBufferReady,
			pts:    c.endPTS(),
			flags:  FlagEndOfStream,
		})
	}
	return nil
}

func (c *SlotCodec) recycle(slot int) {
	c.inUse[slot] = false
	c.free = append(c.free, slot)
}

func (c *SlotCodec) endPTS() time.Duration {
	return c.basePTS + c.segBase + FramesToDuration(c.emitted-c.segStart, c.announced.SampleRate)
}

// emit trims pcm and queues it, preceded by a format change when the
// decoder's output format moved.
func (c *SlotCodec) emit(pcm []byte) {
	if len(pcm) == 0 {
		return
	}

	f := c.dec.Format()
	if f.SampleRate != c.announced.SampleRate || f.Channels != c.announced.Channels {
		if c.announced.SampleRate > 0 {
			c.segBase += FramesToDuration(c.emitted-c.segStart, c.announced.SampleRate)
			c.segStart = c.emitted
		}
		c.announced = f
		c.pending = append(c.pending, pendingUnit{status: OutputFormatChanged, format: f})
	}

	frameSize := f.FrameSize()
	if frameSize <= 0 {
		return
	}
	frames := int64(len(pcm) / frameSize)
	pcm = pcm[:frames*int64(frameSize)]

	if lead := int64(c.format.EncoderDelay) - c.skipped; lead > 0 {
		n := min(lead, frames)
		pcm = pcm[n*int64(frameSize):]
		c.skipped += n
		frames -= n
	}
	if c.format.TotalFrames > 0 {
		remain := c.format.TotalFrames - c.emitted
		if remain <= 0 {
			return
		}
		if frames > remain {
			frames = remain
			pcm = pcm[:frames*int64(frameSize)]
		}
	}
	if frames == 0 {
		return
	}

	pts := c.endPTS()
	c.emitted += frames
	c.pending = append(c.pending, pendingUnit{
		status: OutputBufferReady,
		data:   append([]byte(nil), pcm...),
		pts:    pts,
	})
}

func (c *SlotCodec) DequeueOutputBuffer(time.Duration) (OutputBuffer, OutputStatus, error) {
	if c.state != stateRunning {
		return OutputBuffer{}, OutputTryAgainLater, fmt.Errorf("%s: dequeue output: %w", c.name, ErrCodecState)
	}
	if len(c.pending) == 0 {
		return OutputBuffer{}, OutputTryAgainLater, nil
	}

	u := c.pending[0]
	c.pending = c.pending[1:]
	if u.status == OutputFormatChanged {
		c.current = u.format
		return OutputBuffer{}, OutputFormatChanged, nil
	}

	slot := c.nextSlot
	c.nextSlot++
	c.dequeued[slot] = struct{}{}
	return OutputBuffer{Slot: slot, Data: u.data, PTS: u.pts, Flags: u.flags}, OutputBufferReady, nil
}

func (c *SlotCodec) ReleaseOutputBuffer(slot int) error {
	if _, ok := c.dequeued[slot]; !ok {
		return fmt.Errorf("%s: release output %d: %w", c.name, slot, ErrInvalidSlot)
	}
	delete(c.dequeued, slot)
	return nil
}

func (c *SlotCodec) OutputFormat() TrackFormat {
	if c.current.SampleRate == 0 {
		return c.dec.Format()
	}
	return c.current
}

// Stop returns the codec to the configured state, dropping queued work.
func (c *SlotCodec) Stop() error {
	if c.state == stateReleased {
		return fmt.Errorf("%s: stop: %w", c.name, ErrCodecState)
	}
	if c.state == stateRunning {
		c.state = stateConfigured
	}
	c.reset()
	return nil
}

func (c *SlotCodec) Release() error {
	if c.state == stateReleased {
		return nil
	}
	c.state = stateReleased
	c.in = nil
	c.pending = nil
	if err := c.dec.Close(); err != nil {
		return fmt.Errorf("%s: release: %w", c.name, err)
	}
	return nil
}
