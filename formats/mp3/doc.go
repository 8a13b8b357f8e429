// SPDX-License-Identifier: EPL-2.0

// Package mp3 demuxes and decodes MPEG-1 and MPEG-2 audio layer III.
//
// The demuxer walks the stream frame by frame, skipping ID3v2 and ID3v1
// tags. A leading Xing or Info frame is not handed out; its frame count gives
// the duration and its LAME extension gives the encoder delay and padding,
// which the codec trims so consecutive tracks join without a gap.
//
// Decoding uses github.com/hajimehoshi/go-mp3. It always produces stereo, so
// mono streams are mixed back down.
//
//	reg.RegisterDemuxer(mp3.Factory())
//	reg.RegisterCodec(audio.MIMEMPEG, mp3.NewCodec)
package mp3
