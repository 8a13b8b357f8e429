// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelLayout is the speaker arrangement a Sink is opened with.
type ChannelLayout int

const (
	LayoutInvalid ChannelLayout = iota
	LayoutMono
	LayoutStereo
	Layout5Point1
	Layout7Point1
)

// LayoutForChannels maps a channel count to a sink layout. Only 1, 2, 6 and 8
// channels are playable.
func LayoutForChannels(channels int) (ChannelLayout, error) {
	switch channels {
	case 1:
		return LayoutMono, nil
	case 2:
		return LayoutStereo, nil
	case 6:
		return Layout5Point1, nil
	case 8:
		return Layout7Point1, nil
	}
	return LayoutInvalid, fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, channels)
}

// Channels returns the channel count of the layout.
func (l ChannelLayout) Channels() int {
	switch l {
	case LayoutMono:
		return 1
	case LayoutStereo:
		return 2
	case Layout5Point1:
		return 6
	case Layout7Point1:
		return 8
	}
	return 0
}

func (l ChannelLayout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	case Layout5Point1:
		return "5.1"
	case Layout7Point1:
		return "7.1"
	}
	return "invalid"
}
