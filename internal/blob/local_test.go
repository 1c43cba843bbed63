package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/media/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "banners/main.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/banners/main.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "banners", "main.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	// overwrite keeps the same url
	_, err = s.Put(context.Background(), "banners/main.png", strings.NewReader("png2"), "image/png")
	require.NoError(t, err)
	data, _ = os.ReadFile(filepath.Join(dir, "banners", "main.png"))
	assert.Equal(t, "png2", string(data))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	for _, key := range []string{"", "../x.png", "banners/../../x", "/abs.png"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
