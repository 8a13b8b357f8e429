// SPDX-License-Identifier: EPL-2.0

package audio

import "encoding/binary"

// MixToMono averages the channels of interleaved PCM16 src into mono frames
// appended to dst. Trailing bytes that do not form a whole frame are ignored.
func MixToMono(dst, src []byte, channels int) ([]byte, error) {
	if channels <= 0 {
		return dst, ErrInvalidDstSize
	}
	if channels == 1 {
		// Pass-through
		return append(dst, src[:len(src)&^1]...), nil
	}

	frameSize := channels * 2
	frames := len(src) / frameSize

	// Unrolled loop for common cases
	switch channels {
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f * 4
			l := int32(int16(binary.LittleEndian.Uint16(src[idx:])))
			r := int32(int16(binary.LittleEndian.Uint16(src[idx+2:])))
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16((l+r)/2)))
		}
	default: // Generic path
		for f := range frames {
			sum := int32(0)
			base := f * frameSize
			for c := range channels {
				sum += int32(int16(binary.LittleEndian.Uint16(src[base+c*2:])))
			}
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(sum/int32(channels))))
		}
	}

	return dst, nil
}
