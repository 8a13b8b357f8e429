// SPDX-License-Identifier: EPL-2.0

// Package wav demuxes RIFF/WAVE files holding 16-bit PCM.
//
// The RIFF chunk walk is done by github.com/go-audio/wav. The demuxer hands
// the data chunk out in packets of 1024 frames tagged with the audio/raw
// MIME type, so the pcm codec passes them through unchanged.
//
//	reg.RegisterDemuxer(wav.Factory())
//	reg.RegisterCodec(audio.MIMERaw, pcm.NewCodec)
//
// WriteWAV16 produces files the demuxer accepts and is what the tests build
// their fixtures with.
package wav
