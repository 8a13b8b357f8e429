// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"fmt"

	"github.com/ik5/gapless/audio"
)

// SinkBufferSize computes the sink buffer in bytes from the sink's minimum
// size minSize:
//
//	multiplied = minSize × cfg.BufferMultiplier
//	minApp     = frames(cfg.MinBufferDuration) × frameSize
//	maxApp     = max(minSize, frames(cfg.MaxBufferDuration) × frameSize)
//	size       = multiplied clamped to [minApp, maxApp]
//
// A minSize of zero or less is a configuration error.
func SinkBufferSize(minSize, sampleRate int, layout audio.ChannelLayout, enc audio.Encoding, cfg Config) (int, error) {
	if minSize <= 0 {
		return 0, configError(fmt.Errorf("%w: %d", ErrInvalidSinkSize, minSize))
	}
	cfg = cfg.withDefaults()

	frameSize := layout.Channels() * enc.BytesPerSample()
	multiplied := minSize * cfg.BufferMultiplier
	minApp := int(audio.DurationToFrames(cfg.MinBufferDuration, sampleRate)) * frameSize
	maxApp := max(minSize, int(audio.DurationToFrames(cfg.MaxBufferDuration, sampleRate))*frameSize)

	return max(minApp, min(multiplied, maxApp)), nil
}
