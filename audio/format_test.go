package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutForChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channels int
		want     ChannelLayout
		name     string
	}{
		{1, LayoutMono, "mono"},
		{2, LayoutStereo, "stereo"},
		{6, Layout5Point1, "5.1"},
		{8, Layout7Point1, "7.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LayoutForChannels(tt.channels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.channels, got.Channels())
			assert.Equal(t, tt.name, got.String())
		})
	}
}

func TestLayoutForChannels_Unsupported(t *testing.T) {
	t.Parallel()

	for _, channels := range []int{-1, 0, 3, 4, 5, 7, 9, 16} {
		got, err := LayoutForChannels(channels)
		assert.ErrorIs(t, err, ErrUnsupportedChannelCount, "channels=%d", channels)
		assert.Equal(t, LayoutInvalid, got)
	}
}

func TestDurationToFrames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(11025), DurationToFrames(250*time.Millisecond, 44100))
	assert.Equal(t, int64(33075), DurationToFrames(750*time.Millisecond, 44100))
	assert.Equal(t, int64(48000), DurationToFrames(time.Second, 48000))
	assert.Equal(t, int64(1), DurationToFrames(15*time.Microsecond, 44100), "rounds to nearest")
	assert.Equal(t, int64(0), DurationToFrames(time.Second, 0))
}

func TestFramesToDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Second, FramesToDuration(5*44100, 44100))
	assert.Equal(t, 20*time.Millisecond, FramesToDuration(960, 48000))
	assert.Equal(t, time.Duration(0), FramesToDuration(10, 0))
}

func TestTrackFormat_FrameSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, TrackFormat{Channels: 2}.FrameSize())
	assert.Equal(t, 16, TrackFormat{Channels: 8}.FrameSize())
	assert.Equal(t, 2, EncodingPCM16.BytesPerSample())
	assert.Equal(t, 0, EncodingInvalid.BytesPerSample())
}
