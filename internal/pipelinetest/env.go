// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import "github.com/ik5/gapless/audio"

// Env bundles a tracker with a source, registry and sink factory that all
// report to it.
type Env struct {
	Tracker  *Tracker
	Source   *Source
	Registry *audio.Registry
	Sinks    *SinkFactory
}

func NewEnv() *Env {
	t := NewTracker()
	reg := audio.NewRegistry()
	reg.RegisterDemuxer(DemuxerFactory(t))
	RegisterCodecs(reg, t)

	return &Env{
		Tracker:  t,
		Source:   NewSource(t),
		Registry: reg,
		Sinks:    NewSinkFactory(t),
	}
}
