// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"testing"

	"github.com/ik5/gapless/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_CopiesPackets(t *testing.T) {
	t.Parallel()

	c := NewCodec()
	require.NoError(t, c.Configure(audio.TrackFormat{MIME: audio.MIMERaw, SampleRate: 44100, Channels: 2}))
	require.NoError(t, c.Start())
	defer c.Release()

	slot, ok := c.DequeueInputBuffer(0)
	require.True(t, ok)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	copy(c.InputBuffer(slot), payload)
	require.NoError(t, c.QueueInputBuffer(slot, len(payload), 0, 0))

	_, status, err := c.DequeueOutputBuffer(0)
	require.NoError(t, err)
	require.Equal(t, audio.OutputFormatChanged, status)
	assert.Equal(t, 44100, c.OutputFormat().SampleRate)

	out, status, err := c.DequeueOutputBuffer(0)
	require.NoError(t, err)
	require.Equal(t, audio.OutputBufferReady, status)
	assert.Equal(t, payload, out.Data)
	require.NoError(t, c.ReleaseOutputBuffer(out.Slot))
}

func TestCodec_RejectsOtherFormats(t *testing.T) {
	t.Parallel()

	tests := []audio.TrackFormat{
		{MIME: audio.MIMEMPEG, SampleRate: 44100, Channels: 2},
		{MIME: audio.MIMERaw, SampleRate: 0, Channels: 2},
		{MIME: audio.MIMERaw, SampleRate: 8000, Channels: 0},
	}
	for _, format := range tests {
		err := NewCodec().Configure(format)
		assert.ErrorIs(t, err, audio.ErrInvalidFormat, "%v", format)
	}
}
