// SPDX-License-Identifier: EPL-2.0

package gapless

import (
	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/formats/aiff"
	"github.com/ik5/gapless/formats/mp3"
	"github.com/ik5/gapless/formats/ogg"
	"github.com/ik5/gapless/formats/pcm"
	"github.com/ik5/gapless/formats/vorbis"
	"github.com/ik5/gapless/formats/wav"
)

// DefaultRegistry returns a registry holding every container and codec of
// the module. Callers may register more formats on it.
//
// The Opus codec needs cgo and libopus. It is left out of builds without
// cgo or with the noopus tag; Ogg Opus assets then fail with
// audio.ErrCodecNotFound.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	reg.RegisterDemuxer(wav.Factory())
	reg.RegisterDemuxer(aiff.Factory())
	reg.RegisterDemuxer(ogg.Factory())
	reg.RegisterDemuxer(mp3.Factory())

	reg.RegisterCodec(audio.MIMERaw, pcm.NewCodec)
	reg.RegisterCodec(audio.MIMEMPEG, mp3.NewCodec)
	reg.RegisterCodec(audio.MIMEVorbis, vorbis.NewCodec)
	registerOpus(reg)

	return reg
}
