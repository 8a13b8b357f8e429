// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

// AssetSource resolves asset identifiers to readable handles. Closing the
// handle releases it.
type AssetSource interface {
	Open(id string) (io.ReadSeekCloser, error)
}

// Registry of codecs by MIME type and demuxers by container name.
type Registry struct {
	codecs   map[string]CodecFactory
	demuxers map[string]DemuxerFactory
	byExt    map[string]string
	order    []string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs:   make(map[string]CodecFactory),
		demuxers: make(map[string]DemuxerFactory),
		byExt:    make(map[string]string),
		mtx:      &sync.Mutex{},
	}
}

func (r *Registry) RegisterCodec(mime string, f CodecFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[mime] = f
}

func (r *Registry) Codec(mime string) (CodecFactory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.codecs[mime]
	return f, ok
}

// NewCodec constructs a codec for mime.
func (r *Registry) NewCodec(mime string) (Codec, error) {
	f, ok := r.Codec(mime)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCodecNotFound, mime)
	}
	return f(), nil
}

// RegisterDemuxer adds f, replacing any demuxer with the same name.
func (r *Registry) RegisterDemuxer(f DemuxerFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.demuxers[f.Name]; !ok {
		r.order = append(r.order, f.Name)
	}
	r.demuxers[f.Name] = f
	for _, ext := range f.Extensions {
		r.byExt[strings.ToLower(ext)] = f.Name
	}
}

func (r *Registry) Demuxer(name string) (DemuxerFactory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.demuxers[name]
	return f, ok
}

// DemuxerFor picks the demuxer for asset id by its extension, falling back
// to sniffing head in registration order.
func (r *Registry) DemuxerFor(id string, head []byte) (DemuxerFactory, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if name, ok := r.byExt[strings.ToLower(path.Ext(id))]; ok {
		return r.demuxers[name], nil
	}
	for _, name := range r.order {
		f := r.demuxers[name]
		if f.Sniff != nil && f.Sniff(head) {
			return f, nil
		}
	}
	return DemuxerFactory{}, fmt.Errorf("%w: %q", ErrDemuxerNotFound, id)
}
