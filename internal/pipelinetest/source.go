// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// Source serves registered assets as in-memory handles.
type Source struct {
	t *Tracker

	mu     sync.Mutex
	assets map[string][]byte
	fail   map[string]error
	opens  map[string]int
}

func NewSource(t *Tracker) *Source {
	return &Source{
		t:      t,
		assets: make(map[string][]byte),
		fail:   make(map[string]error),
		opens:  make(map[string]int),
	}
}

// Add registers a under id.
func (s *Source) Add(id string, a Asset) {
	a.Name = id
	s.AddRaw(id, Encode(a))
}

// AddRaw registers id with arbitrary bytes.
func (s *Source) AddRaw(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets[id] = data
}

// Fail makes Open of id return err.
func (s *Source) Fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fail[id] = err
}

// Opens is the number of Open calls for id, failed ones included.
func (s *Source) Opens(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opens[id]
}

func (s *Source) Open(id string) (io.ReadSeekCloser, error) {
	s.mu.Lock()
	data, ok := s.assets[id]
	err := s.fail[id]
	s.opens[id]++
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("open %q: %w", id, fs.ErrNotExist)
	}

	s.t.acquire(KindHandle, id)
	return &handle{Reader: bytes.NewReader(data), t: s.t, id: id}, nil
}

type handle struct {
	*bytes.Reader
	t    *Tracker
	id   string
	once sync.Once
}

func (h *handle) Close() error {
	h.once.Do(func() { h.t.release(KindHandle, h.id) })
	return nil
}
