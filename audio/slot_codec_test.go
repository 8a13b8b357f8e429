package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePacketDecoder passes packets through as PCM, optionally switching rate
// after a number of packets.
type fakePacketDecoder struct {
	format     TrackFormat
	switchAt   int
	switchRate int
	tail       []byte
	failAt     int
	decoded    int
	closed     bool
}

func (d *fakePacketDecoder) Init(format TrackFormat) error {
	if format.Channels == 0 {
		return ErrInvalidFormat
	}
	d.format = TrackFormat{MIME: MIMERaw, SampleRate: format.SampleRate, Channels: format.Channels}
	return nil
}

func (d *fakePacketDecoder) Format() TrackFormat { return d.format }

func (d *fakePacketDecoder) Decode(packet []byte, out []byte) ([]byte, error) {
	d.decoded++
	if d.failAt > 0 && d.decoded == d.failAt {
		return out, errors.New("corrupt packet")
	}
	if d.switchAt > 0 && d.decoded == d.switchAt {
		d.format.SampleRate = d.switchRate
	}
	return append(out, packet...), nil
}

func (d *fakePacketDecoder) Flush(out []byte) ([]byte, error) {
	return append(out, d.tail...), nil
}

func (d *fakePacketDecoder) Close() error {
	d.closed = true
	return nil
}

func startedCodec(t *testing.T, dec *fakePacketDecoder, format TrackFormat) *SlotCodec {
	t.Helper()

	c := NewSlotCodec("fake", dec)
	require.NoError(t, c.Configure(format))
	require.NoError(t, c.Start())
	return c
}

func queuePacket(t *testing.T, c *SlotCodec, frames, channels int, pts time.Duration) {
	t.Helper()

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	size := frames * channels * 2
	buf := c.InputBuffer(slot)
	for i := range size {
		buf[i] = byte(i)
	}
	require.NoError(t, c.QueueInputBuffer(slot, size, pts, 0))
}

func queueEOS(t *testing.T, c *SlotCodec) {
	t.Helper()

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	require.NoError(t, c.QueueInputBuffer(slot, 0, 0, FlagEndOfStream))
}

func nextOutput(t *testing.T, c *SlotCodec) (OutputBuffer, OutputStatus) {
	t.Helper()

	out, status, err := c.DequeueOutputBuffer(0)
	require.NoError(t, err)
	return out, status
}

func TestSlotCodec_FormatChangeBeforeFirstUnit(t *testing.T) {
	t.Parallel()

	c := startedCodec(t, &fakePacketDecoder{}, TrackFormat{MIME: MIMERaw, SampleRate: 44100, Channels: 2})

	_, status := nextOutput(t, c)
	assert.Equal(t, OutputTryAgainLater, status)

	queuePacket(t, c, 100, 2, 0)
	queuePacket(t, c, 100, 2, 0)

	_, status = nextOutput(t, c)
	require.Equal(t, OutputFormatChanged, status)
	assert.Equal(t, 44100, c.OutputFormat().SampleRate)
	assert.Equal(t, 2, c.OutputFormat().Channels)

	out, status := nextOutput(t, c)
	require.Equal(t, OutputBufferReady, status)
	assert.Len(t, out.Data, 400)
	assert.Equal(t, time.Duration(0), out.PTS)
	require.NoError(t, c.ReleaseOutputBuffer(out.Slot))

	out, status = nextOutput(t, c)
	require.Equal(t, OutputBufferReady, status)
	assert.Equal(t, FramesToDuration(100, 44100), out.PTS)
	assert.Zero(t, out.Flags&FlagEndOfStream)
	require.NoError(t, c.ReleaseOutputBuffer(out.Slot))
}

func TestSlotCodec_EndOfStreamCarriesEndTime(t *testing.T) {
	t.Parallel()

	dec := &fakePacketDecoder{tail: make([]byte, 40)}
	c := startedCodec(t, dec, TrackFormat{MIME: MIMERaw, SampleRate: 48000, Channels: 1})

	queuePacket(t, c, 480, 1, 0)
	queueEOS(t, c)

	_, ok := c.DequeueInputBuffer(0)
	assert.False(t, ok, "no input accepted after end of stream")

	var units []OutputBuffer
	for {
		out, status := nextOutput(t, c)
		if status == OutputTryAgainLater {
			break
		}
		if status == OutputBufferReady {
			units = append(units, out)
			require.NoError(t, c.ReleaseOutputBuffer(out.Slot))
		}
	}

	require.Len(t, units, 3)
	assert.Len(t, units[1].Data, 40, "flushed tail")
	last := units[2]
	assert.NotZero(t, last.Flags&FlagEndOfStream)
	assert.Empty(t, last.Data)
	assert.Equal(t, FramesToDuration(500, 48000), last.PTS)
}

func TestSlotCodec_GaplessTrim(t *testing.T) {
	t.Parallel()

	format := TrackFormat{MIME: MIMERaw, SampleRate: 44100, Channels: 2, EncoderDelay: 30, TotalFrames: 150}
	c := startedCodec(t, &fakePacketDecoder{}, format)

	queuePacket(t, c, 100, 2, 0)
	queuePacket(t, c, 100, 2, 0)
	queuePacket(t, c, 100, 2, 0)
	queueEOS(t, c)

	var sizes []int
	var end time.Duration
	for {
		out, status := nextOutput(t, c)
		if status == OutputTryAgainLater {
			break
		}
		if status != OutputBufferReady {
			continue
		}
		if out.Flags&FlagEndOfStream != 0 {
			end = out.PTS
		} else {
			sizes = append(sizes, len(out.Data)/4)
		}
		require.NoError(t, c.ReleaseOutputBuffer(out.Slot))
	}

	assert.Equal(t, []int{70, 80}, sizes)
	assert.Equal(t, FramesToDuration(150, 44100), end)
}

func TestSlotCodec_RateChangeMidStream(t *testing.T) {
	t.Parallel()

	dec := &fakePacketDecoder{switchAt: 2, switchRate: 22050}
	c := startedCodec(t, dec, TrackFormat{MIME: MIMERaw, SampleRate: 44100, Channels: 1})

	queuePacket(t, c, 441, 1, 0)
	queuePacket(t, c, 441, 1, 10*time.Millisecond)
	queueEOS(t, c)

	var statuses []OutputStatus
	var pts []time.Duration
	for {
		out, status := nextOutput(t, c)
		if status == OutputTryAgainLater {
			break
		}
		statuses = append(statuses, status)
		if status == OutputBufferReady {
			pts = append(pts, out.PTS)
			require.NoError(t, c.ReleaseOutputBuffer(out.Slot))
		}
	}

	assert.Equal(t, []OutputStatus{
		OutputFormatChanged, OutputBufferReady,
		OutputFormatChanged, OutputBufferReady,
		OutputBufferReady,
	}, statuses)
	assert.Equal(t, 22050, c.OutputFormat().SampleRate)
	assert.Equal(t, []time.Duration{0, 10 * time.Millisecond, 30 * time.Millisecond}, pts)
}

func TestSlotCodec_Backpressure(t *testing.T) {
	t.Parallel()

	c := startedCodec(t, &fakePacketDecoder{}, TrackFormat{MIME: MIMERaw, SampleRate: 8000, Channels: 1})

	accepted := 0
	for range 20 {
		slot, ok := c.DequeueInputBuffer(0)
		if !ok {
			break
		}
		require.NoError(t, c.QueueInputBuffer(slot, 16, 0, 0))
		accepted++
	}
	// one format change plus seven units fill the output queue
	assert.Equal(t, 7, accepted)

	_, status := nextOutput(t, c)
	require.Equal(t, OutputFormatChanged, status)
	_, ok := c.DequeueInputBuffer(0)
	assert.True(t, ok)
}

func TestSlotCodec_SlotValidation(t *testing.T) {
	t.Parallel()

	c := startedCodec(t, &fakePacketDecoder{}, TrackFormat{MIME: MIMERaw, SampleRate: 8000, Channels: 1})

	assert.ErrorIs(t, c.QueueInputBuffer(0, 4, 0, 0), ErrInvalidSlot, "slot not dequeued")
	assert.ErrorIs(t, c.QueueInputBuffer(99, 4, 0, 0), ErrInvalidSlot)
	assert.Nil(t, c.InputBuffer(-1))

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	assert.ErrorIs(t, c.QueueInputBuffer(slot, len(c.InputBuffer(slot))+1, 0, 0), ErrInvalidSlot)
	assert.ErrorIs(t, c.ReleaseOutputBuffer(3), ErrInvalidSlot)
}

func TestSlotCodec_Lifecycle(t *testing.T) {
	t.Parallel()

	dec := &fakePacketDecoder{}
	c := NewSlotCodec("fake", dec)

	_, ok := c.DequeueInputBuffer(0)
	assert.False(t, ok, "not started")
	assert.ErrorIs(t, c.Start(), ErrCodecState)
	assert.Error(t, c.Configure(TrackFormat{}), "decoder rejects format")

	require.NoError(t, c.Configure(TrackFormat{MIME: MIMERaw, SampleRate: 8000, Channels: 1}))
	require.NoError(t, c.Start())
	queuePacket(t, c, 10, 1, 0)

	require.NoError(t, c.Stop())
	_, _, err := c.DequeueOutputBuffer(0)
	assert.ErrorIs(t, err, ErrCodecState, "stopped codec has no output")

	require.NoError(t, c.Start())
	_, status := nextOutput(t, c)
	assert.Equal(t, OutputTryAgainLater, status, "stop drops queued output")

	require.NoError(t, c.Release())
	assert.True(t, dec.closed)
	assert.NoError(t, c.Release())
	assert.ErrorIs(t, c.Stop(), ErrCodecState)
	assert.ErrorIs(t, c.QueueInputBuffer(0, 0, 0, FlagEndOfStream), ErrCodecState)
}

func TestSlotCodec_DecodeError(t *testing.T) {
	t.Parallel()

	c := startedCodec(t, &fakePacketDecoder{failAt: 1}, TrackFormat{MIME: MIMERaw, SampleRate: 8000, Channels: 1})

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	err := c.QueueInputBuffer(slot, 8, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt packet")

	_, ok = c.DequeueInputBuffer(0)
	assert.True(t, ok, "slot is recycled after a failed decode")
}
