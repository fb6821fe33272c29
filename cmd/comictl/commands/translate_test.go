package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plastinin/comictranslate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input       string
		contentType string
		want        string
	}{
		{input: "pages/ch1.png", contentType: "image/png", want: filepath.Join("pages", "translated_comic_ch1.png")},
		{input: "scan.pdf", contentType: "image/png", want: "translated_comic_scan.png"},
		{input: "page.webp", contentType: "image/jpeg", want: "translated_comic_page.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultOutputPath(tt.input, tt.contentType))
		})
	}
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()

	t.Run("image is passed through", func(t *testing.T) {
		path := filepath.Join(dir, "page.png")
		require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

		name, ct, data, err := readInput(path, 1)
		require.NoError(t, err)
		assert.Equal(t, "page.png", name)
		assert.Equal(t, "image/png", ct)
		assert.Equal(t, []byte("png-bytes"), data)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, _, err := readInput(filepath.Join(dir, "notes.txt"), 1)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	})

	t.Run("page must be positive", func(t *testing.T) {
		path := filepath.Join(dir, "page.jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o644))

		_, _, _, err := readInput(path, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
