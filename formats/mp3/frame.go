// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
)

const (
	headerSize = 4

	// decoderDelay is the synthesis filterbank delay of a layer III
	// decoder, in samples.
	decoderDelay = 529

	// maxFrameSize bounds a free-standing layer III frame.
	maxFrameSize = 2881
)

var (
	bitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1}
	bitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1}
	ratesV1    = [4]int{44100, 48000, 32000, -1}
	ratesV2    = [4]int{22050, 24000, 16000, -1}
)

// frameHeader is a decoded MPEG-1/2 layer III frame header.
type frameHeader struct {
	lsf        bool // MPEG-2 low sampling frequency
	protected  bool
	bitrate    int // bits per second
	sampleRate int
	padding    int
	mono       bool
}

// parseHeader decodes b[0:4]. MPEG 2.5 and layers other than III are
// rejected, as is the free bitrate.
func parseHeader(b []byte) (frameHeader, bool) {
	if len(b) < headerSize || b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return frameHeader{}, false
	}

	version := (b[1] >> 3) & 0x03
	layer := (b[1] >> 1) & 0x03
	if version == 0 || version == 1 || layer != 1 {
		return frameHeader{}, false
	}

	h := frameHeader{
		lsf:       version == 2,
		protected: b[1]&0x01 == 0,
		padding:   int(b[2]>>1) & 0x01,
		mono:      b[3]>>6 == 3,
	}

	bitrates, rates := bitratesV1, ratesV1
	if h.lsf {
		bitrates, rates = bitratesV2, ratesV2
	}
	h.bitrate = bitrates[b[2]>>4] * 1000
	h.sampleRate = rates[(b[2]>>2)&0x03]
	if h.bitrate <= 0 || h.sampleRate <= 0 {
		return frameHeader{}, false
	}
	return h, true
}

// frameSize is the size of the whole frame in bytes, header included. It
// matches the size the decoder consumes.
func (h frameHeader) frameSize() int {
	lsf := 0
	if h.lsf {
		lsf = 1
	}
	return ((144*h.bitrate)/h.sampleRate + h.padding) >> lsf
}

func (h frameHeader) samplesPerFrame() int {
	if h.lsf {
		return 576
	}
	return 1152
}

func (h frameHeader) channels() int {
	if h.mono {
		return 1
	}
	return 2
}

func (h frameHeader) sideInfoSize() int {
	switch {
	case h.lsf && h.mono:
		return 9
	case h.lsf, h.mono:
		return 17
	}
	return 32
}

// xingInfo is what a Xing/Info frame at the start of the stream tells about
// the rest of it.
type xingInfo struct {
	frames  int64 // audio frames, the info frame excluded
	delay   int
	padding int
	hasLAME bool
}

const (
	xingFrames  = 0x1
	xingBytes   = 0x2
	xingTOC     = 0x4
	xingQuality = 0x8
)

// lameEncoders are the encoder strings that carry the LAME extension.
var lameEncoders = [][]byte{[]byte("LAME"), []byte("Lavf"), []byte("Lavc")}

// parseXing looks for a Xing or Info tag in frame, which must be a complete
// frame described by h.
func parseXing(h frameHeader, frame []byte) (xingInfo, bool) {
	off := headerSize + h.sideInfoSize()
	if h.protected {
		off += 2
	}
	if len(frame) < off+8 {
		return xingInfo{}, false
	}
	tag := frame[off : off+4]
	if !bytes.Equal(tag, []byte("Xing")) && !bytes.Equal(tag, []byte("Info")) {
		return xingInfo{}, false
	}

	var info xingInfo
	flags := binary.BigEndian.Uint32(frame[off+4:])
	off += 8
	if flags&xingFrames != 0 {
		if len(frame) < off+4 {
			return info, true
		}
		info.frames = int64(binary.BigEndian.Uint32(frame[off:]))
		off += 4
	}
	if flags&xingBytes != 0 {
		off += 4
	}
	if flags&xingTOC != 0 {
		off += 100
	}
	if flags&xingQuality != 0 {
		off += 4
	}

	if len(frame) < off+24 {
		return info, true
	}
	enc := frame[off : off+4]
	for _, name := range lameEncoders {
		if bytes.Equal(enc, name) {
			b := frame[off+21 : off+24]
			info.delay = int(b[0])<<4 | int(b[1])>>4
			info.padding = int(b[1]&0x0F)<<8 | int(b[2])
			info.hasLAME = true
			break
		}
	}
	return info, true
}

// id3v2Size returns the full size of an ID3v2 tag starting at b, or 0.
func id3v2Size(b []byte) int {
	if len(b) < 10 || !bytes.Equal(b[:3], []byte("ID3")) {
		return 0
	}
	size := int(b[6]&0x7F)<<21 | int(b[7]&0x7F)<<14 | int(b[8]&0x7F)<<7 | int(b[9]&0x7F)
	size += 10
	if b[5]&0x10 != 0 {
		size += 10
	}
	return size
}
