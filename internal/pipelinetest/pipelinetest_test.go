// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/ik5/gapless/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemuxer_Packets(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	src := NewSource(tr)
	src.Add("a.fake", Asset{SampleRate: 1000, Channels: 2, Duration: 2500 * time.Millisecond, CachedAfter: 2})

	rsc, err := src.Open("a.fake")
	require.NoError(t, err)
	d, err := OpenDemuxer(tr, rsc)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Live(KindDemuxer))

	format, err := d.TrackFormat(0)
	require.NoError(t, err)
	assert.Equal(t, audio.MIMERaw, format.MIME)
	assert.Equal(t, int64(2500), format.TotalFrames)

	buf := make([]byte, format.MaxInputSize)
	var sizes []int
	var times []time.Duration
	var cached []bool
	for {
		n, err := d.ReadSample(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, n)
		times = append(times, d.SampleTime())
		cached = append(cached, d.CachedToEnd())
		d.Advance()
	}

	assert.Equal(t, []int{4096, 4096, 452 * 4}, sizes)
	assert.Equal(t, []time.Duration{0, 1024 * time.Millisecond, 2048 * time.Millisecond}, times)
	assert.Equal(t, []bool{false, false, true}, cached)
	assert.Equal(t, SampleValue(2048), int16(binary.LittleEndian.Uint16(buf)))

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.NoError(t, rsc.Close())
	assert.Zero(t, tr.LiveTotal())
	assert.Equal(t, []string{
		"open handle a.fake", "open demuxer a.fake",
		"close demuxer a.fake", "close handle a.fake",
	}, tr.Events())
}

func TestDemuxer_Rejects(t *testing.T) {
	t.Parallel()

	_, err := OpenDemuxer(NewTracker(), bytes.NewReader([]byte("RIFF0000WAVE")))
	assert.ErrorIs(t, err, ErrNotFake)
	assert.True(t, Sniff(Encode(Asset{})))
	assert.False(t, Sniff([]byte("FAK")))
}

func TestStallCodec_NeverProducesOutput(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	reg := audio.NewRegistry()
	RegisterCodecs(reg, tr)

	polls := 0
	tr.OnPoll = func(n int) { polls = n }

	c, err := reg.NewCodec(MIMEStall)
	require.NoError(t, err)
	require.NoError(t, c.Configure(audio.TrackFormat{MIME: MIMEStall, MaxInputSize: 16}))
	require.NoError(t, c.Start())

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	require.NoError(t, c.QueueInputBuffer(slot, 16, 0, 0))
	for range 3 {
		_, status, err := c.DequeueOutputBuffer(0)
		require.NoError(t, err)
		assert.Equal(t, audio.OutputTryAgainLater, status)
	}
	assert.Equal(t, 3, polls)

	require.NoError(t, c.Stop())
	require.NoError(t, c.Release())
	assert.Equal(t, 1, tr.Created(KindCodec))
	assert.Zero(t, tr.Live(KindCodec))
}
