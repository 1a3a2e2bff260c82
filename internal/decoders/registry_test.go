package decoders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

type mockDecoder struct {
	name      string
	subtypes  []string
	supported bool
}

func (m *mockDecoder) Name() string       { return m.name }
func (m *mockDecoder) Subtypes() []string { return m.subtypes }
func (m *mockDecoder) Supported() bool    { return m.supported }
func (m *mockDecoder) Probe(context.Context, driven.Source) (driven.Probe, error) {
	return driven.Probe{}, nil
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockDecoder{name: "a", subtypes: []string{"jpeg", "PNG"}, supported: true})

	d, err := r.Lookup("jpeg")
	require.NoError(t, err)
	assert.Equal(t, "a", d.Name())

	d, err = r.Lookup("png")
	require.NoError(t, err)
	assert.Equal(t, "a", d.Name())
}

func TestRegistry_LookupUnexpected(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("x-unknown")
	assert.ErrorIs(t, err, domain.ErrUnexpectedFormat)
}

func TestRegistry_LookupPlaceholder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockDecoder{name: "pdf", subtypes: []string{"pdf"}})

	_, err := r.Lookup("pdf")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, domain.ErrUnexpectedFormat)
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockDecoder{name: "old", subtypes: []string{"gif"}, supported: true})
	r.Register(&mockDecoder{name: "new", subtypes: []string{"gif"}, supported: true})

	d, err := r.Lookup("gif")
	require.NoError(t, err)
	assert.Equal(t, "new", d.Name())
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, Config{ScratchDir: t.TempDir()})

	for _, subtype := range []string{"jpeg", "jpg", "png", "gif", "tiff", "ogg", "wav", "flac", "x-flac", "webm"} {
		_, err := r.Lookup(subtype)
		assert.NoError(t, err, subtype)
	}
	for _, subtype := range []string{"pdf", "svg+xml", "svg", "vnd.djvu", "djvu", "x-xcf", "xcf", "midi", "mid"} {
		_, err := r.Lookup(subtype)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat, subtype)
	}
	assert.Contains(t, r.Subtypes(), "jpeg")
	assert.IsNonDecreasing(t, r.Subtypes())
}
