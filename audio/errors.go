// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize          = errors.New("dst size must be multiple of channels")
	ErrUnsupportedChannelCount = errors.New("unsupported channel count")
	ErrCodecNotFound           = errors.New("no codec registered for mime type")
	ErrDemuxerNotFound         = errors.New("no demuxer registered for container")
	ErrTrackOutOfRange         = errors.New("track index out of range")
	ErrShortBuffer             = errors.New("sample does not fit destination buffer")
	ErrInvalidSlot             = errors.New("invalid buffer slot")
	ErrCodecState              = errors.New("codec is not in a state that allows this call")
	ErrInvalidFormat           = errors.New("invalid track format")
)
