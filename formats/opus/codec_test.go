// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"errors"
	"testing"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOpusDecoder yields 960 frames per packet, each sample set to the first
// packet byte.
type mockOpusDecoder struct {
	channels int
}

func (m *mockOpusDecoder) Decode(data []byte, pcm []int16) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("opus: no data supplied")
	}
	for i := range 960 * m.channels {
		pcm[i] = int16(data[0])
	}
	return 960, nil
}

func mockFactory(rate, channels int) (opusDecoder, error) {
	if rate != sampleRate {
		return nil, errors.New("unexpected rate")
	}
	return &mockOpusDecoder{channels: channels}, nil
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	d := &decoder{newDecoder: mockFactory}
	require.NoError(t, d.Init(audio.TrackFormat{MIME: audio.MIMEOpus, SampleRate: 48000, Channels: 2, EncoderDelay: 312}))
	assert.Equal(t, audio.TrackFormat{MIME: audio.MIMERaw, SampleRate: 48000, Channels: 2}, d.Format())

	out, err := d.Decode([]byte{7}, nil)
	require.NoError(t, err)
	require.Len(t, out, 960*2*2)
	assert.Equal(t, int16(7), utils.PCM16At(out, 1919))

	_, err = d.Decode(nil, out)
	assert.Error(t, err)

	tail, err := d.Flush(nil)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func TestDecoder_InitErrors(t *testing.T) {
	t.Parallel()

	d := &decoder{newDecoder: mockFactory}
	assert.ErrorIs(t, d.Init(audio.TrackFormat{MIME: audio.MIMEVorbis, Channels: 2}), audio.ErrInvalidFormat)
	assert.ErrorIs(t, d.Init(audio.TrackFormat{MIME: audio.MIMEOpus, Channels: 6}), audio.ErrInvalidFormat)

	boom := errors.New("no libopus")
	d = &decoder{newDecoder: func(int, int) (opusDecoder, error) { return nil, boom }}
	assert.ErrorIs(t, d.Init(audio.TrackFormat{MIME: audio.MIMEOpus, Channels: 1}), boom)
}

func TestLibopus_RejectsEmptyPacket(t *testing.T) {
	t.Parallel()

	d := &decoder{newDecoder: newLibopus}
	require.NoError(t, d.Init(audio.TrackFormat{MIME: audio.MIMEOpus, Channels: 2}))
	defer d.Close()

	_, err := d.Decode(nil, nil)
	assert.Error(t, err)
}
