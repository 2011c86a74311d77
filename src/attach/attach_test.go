package attach

import (
	"encoding/base64"
	"testing"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk; enough for sniffing.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89,
}

func TestLoadImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pics/dot.png", pngBytes, 0o644))

	l := NewLoader(fs, nil)
	got, err := l.Load("/pics/dot.png")
	require.NoError(t, err)

	assert.Equal(t, "dot.png", got.Attachment.Name)
	assert.Equal(t, "image/png", got.Attachment.Type)
	assert.Equal(t, int64(len(pngBytes)), got.Attachment.Size)
	assert.Equal(t, aisdk.PartTypeImage, got.Part.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), got.Part.Image)
	require.NoError(t, got.Part.Validate())
}

func TestLoadRejects(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/notes.txt", []byte("just text"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/big.png", append(append([]byte{}, pngBytes...), make([]byte, 100)...), 0o644))
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	l := NewLoader(fs, nil)

	_, err := l.Load("/notes.txt")
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = l.Load("/missing.png")
	assert.Error(t, err)

	_, err = l.Load("/dir")
	assert.Error(t, err)

	l.MaxBytes = 50
	_, err = l.Load("/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoadAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.png", pngBytes, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b.png", pngBytes, 0o644))

	l := NewLoader(fs, nil)
	got, err := l.LoadAll([]string{"/a.png", "/b.png"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = l.LoadAll([]string{"/a.png", "/c.png"})
	assert.Error(t, err)
}
