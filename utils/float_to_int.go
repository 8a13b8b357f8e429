// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// Int16ToFloat64 scales a PCM16 sample into [-1, 1).
func Int16ToFloat64(x int16) float64 {
	return float64(x) / 32768.0
}

// AppendFloat32AsPCM16 converts interleaved float samples to PCM16
// little-endian and appends them to dst.
func AppendFloat32AsPCM16(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(Float32ToInt16(s)))
	}
	return dst
}

// AppendInt16AsPCM16 appends samples as PCM16 little-endian to dst.
func AppendInt16AsPCM16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// PCM16At reads the i-th sample of little-endian PCM16 data.
func PCM16At(data []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(data[i*2:]))
}
