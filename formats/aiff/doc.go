// SPDX-License-Identifier: EPL-2.0

// Package aiff demuxes AIFF (Audio Interchange File Format) files.
//
// This package uses github.com/go-audio/aiff to walk the FORM chunks. Only
// 16-bit PCM is accepted; the big-endian sound data is converted to
// little-endian PCM16 and handed out as audio/raw packets of 1024 frames,
// which the pcm codec passes through.
//
//	reg.RegisterDemuxer(aiff.Factory())
package aiff
