// SPDX-License-Identifier: EPL-2.0

package pipeline

// State of the controller's worker.
type State int32

const (
	StateIdle State = iota
	StatePerAssetSetup
	StateDecoding
	// StateDraining means input end of stream was queued and the worker
	// only pulls output.
	StateDraining
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePerAssetSetup:
		return "per-asset-setup"
	case StateDecoding:
		return "decoding"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}
