// SPDX-License-Identifier: EPL-2.0

//go:build !cgo || noopus

package gapless

import "github.com/ik5/gapless/audio"

// OpusSupported reports whether DefaultRegistry decodes Opus.
const OpusSupported = false

func registerOpus(*audio.Registry) {}
