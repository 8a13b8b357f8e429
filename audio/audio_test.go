package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(name string, magic string, exts ...string) DemuxerFactory {
	return DemuxerFactory{
		Name:       name,
		Extensions: exts,
		Sniff: func(head []byte) bool {
			return bytes.HasPrefix(head, []byte(magic))
		},
		Open: func(io.ReadSeeker) (Demuxer, error) {
			return nil, errors.New(name)
		},
	}
}

func TestRegistry_CodecRegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	built := 0
	registry.RegisterCodec(MIMERaw, func() Codec {
		built++
		return NewSlotCodec("test", &fakePacketDecoder{})
	})

	_, ok := registry.Codec(MIMERaw)
	assert.True(t, ok)

	c, err := registry.NewCodec(MIMERaw)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, 1, built)
}

func TestRegistry_CodecNotFound(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	_, err := registry.NewCodec(MIMEOpus)
	assert.ErrorIs(t, err, ErrCodecNotFound)
}

func TestRegistry_DemuxerByExtension(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterDemuxer(newTestFactory("wav", "RIFF", ".wav", ".WAVE"))
	registry.RegisterDemuxer(newTestFactory("ogg", "OggS", ".ogg"))

	f, err := registry.DemuxerFor("album/01 Intro.WAV", nil)
	require.NoError(t, err)
	assert.Equal(t, "wav", f.Name)

	f, err = registry.DemuxerFor("b.wave", nil)
	require.NoError(t, err)
	assert.Equal(t, "wav", f.Name)

	f, err = registry.DemuxerFor("c.ogg", []byte("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "ogg", f.Name, "extension wins over content")
}

func TestRegistry_DemuxerBySniff(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterDemuxer(newTestFactory("wav", "RIFF", ".wav"))
	registry.RegisterDemuxer(newTestFactory("ogg", "OggS", ".ogg"))

	f, err := registry.DemuxerFor("track-7", []byte("OggS\x00\x02"))
	require.NoError(t, err)
	assert.Equal(t, "ogg", f.Name)

	_, err = registry.DemuxerFor("track-8", []byte("fLaC"))
	assert.ErrorIs(t, err, ErrDemuxerNotFound)
}

func TestRegistry_ReplaceKeepsOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterDemuxer(newTestFactory("a", "AAAA"))
	registry.RegisterDemuxer(newTestFactory("b", "AA"))
	registry.RegisterDemuxer(newTestFactory("a", "AAA"))

	f, err := registry.DemuxerFor("x", []byte("AAAA"))
	require.NoError(t, err)
	assert.Equal(t, "a", f.Name)

	got, ok := registry.Demuxer("a")
	require.True(t, ok)
	assert.False(t, got.Sniff([]byte("AA")))
}

type cachedReader struct {
	*bytes.Reader
	done bool
}

func (c *cachedReader) ReachedEnd() bool { return c.done }

func TestCachedToEnd(t *testing.T) {
	t.Parallel()

	assert.False(t, CachedToEnd(bytes.NewReader(nil)))
	assert.False(t, CachedToEnd(&cachedReader{Reader: bytes.NewReader(nil)}))
	assert.True(t, CachedToEnd(&cachedReader{Reader: bytes.NewReader(nil), done: true}))
}
