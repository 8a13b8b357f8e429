// SPDX-License-Identifier: EPL-2.0

//go:build cgo && !noopus

package gapless

import (
	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/formats/opus"
)

// OpusSupported reports whether DefaultRegistry decodes Opus.
const OpusSupported = true

func registerOpus(reg *audio.Registry) {
	reg.RegisterCodec(audio.MIMEOpus, opus.NewCodec)
}
