// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Vorbis packets demuxed from Ogg.
//
// Decoding uses github.com/jfreymuth/vorbis. The three header packets
// travel in the track's CodecConfig; the codec reads them on Configure and
// from then on turns each audio packet into PCM16. Surround channels are
// reordered from Vorbis order into the WAVE order the sinks expect.
//
//	reg.RegisterDemuxer(ogg.Factory())
//	reg.RegisterCodec(audio.MIMEVorbis, vorbis.NewCodec)
package vorbis
