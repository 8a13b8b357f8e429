// SPDX-License-Identifier: EPL-2.0

// Package pipelinetest provides deterministic fakes for exercising the
// playback pipeline: an asset source serving synthetic assets, a demuxer
// for them, counting codecs and a recording sink. Every fake reports to a
// Tracker so tests can assert on live handles and on the order of events.
package pipelinetest

import (
	"fmt"
	"sync"
)

// Kind of tracked resource.
type Kind string

const (
	KindHandle  Kind = "handle"
	KindDemuxer Kind = "demuxer"
	KindCodec   Kind = "codec"
	KindSink    Kind = "sink"
)

// Tracker counts resources and logs lifecycle events in order.
type Tracker struct {
	mu      sync.Mutex
	live    map[Kind]int
	created map[Kind]int
	events  []string
	polls   int
	byCodec map[string]int

	// OnPoll, when set, is called after every output poll of a tracked
	// codec with the number of polls so far. It runs on the pipeline
	// worker.
	OnPoll func(polls int)
}

func NewTracker() *Tracker {
	return &Tracker{
		live:    make(map[Kind]int),
		created: make(map[Kind]int),
		byCodec: make(map[string]int),
	}
}

func (t *Tracker) acquire(k Kind, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.live[k]++
	t.created[k]++
	t.events = append(t.events, fmt.Sprintf("open %s %s", k, name))
}

func (t *Tracker) release(k Kind, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.live[k]--
	t.events = append(t.events, fmt.Sprintf("close %s %s", k, name))
}

// Record appends a free-form event.
func (t *Tracker) Record(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *Tracker) poll(codec string) {
	t.mu.Lock()
	t.polls++
	t.byCodec[codec]++
	n := t.polls
	hook := t.OnPoll
	t.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

// Live is the number of open resources of kind k.
func (t *Tracker) Live(k Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.live[k]
}

// LiveTotal is the number of open resources of any kind.
func (t *Tracker) LiveTotal() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, n := range t.live {
		total += n
	}
	return total
}

// Created is the number of resources of kind k ever opened.
func (t *Tracker) Created(k Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.created[k]
}

// Polls is the number of output polls across all tracked codecs.
func (t *Tracker) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.polls
}

// CodecPolls is the number of output polls of the named codec. Codecs are
// named after their MIME type and creation order, as in "audio/raw#1".
func (t *Tracker) CodecPolls(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.byCodec[name]
}

// Events returns a copy of the event log.
func (t *Tracker) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.events...)
}

// IndexOf returns the position of the first event equal to ev, or -1.
func (t *Tracker) IndexOf(ev string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.events {
		if e == ev {
			return i
		}
	}
	return -1
}
