package source

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineSource(t *testing.T) {
	src := NewInlineSource("hello world")
	assert.Equal(t, "inline", src.Name())

	reader, err := src.Open(t.Context())
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestInlineSource_Empty(t *testing.T) {
	src := NewInlineSource("")

	reader, err := src.Open(t.Context())
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestFileSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/report.txt", []byte("report body"), 0o644))

	src := NewFileSourceWithFs(fs, "/data/report.txt")
	assert.Equal(t, "file(/data/report.txt)", src.Name())

	reader, err := src.Open(t.Context())
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "report body", string(content))
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSourceWithFs(afero.NewMemMapFs(), "/missing.txt")

	_, err := src.Open(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestNewFileSource_EmptyPath(t *testing.T) {
	_, err := NewFileSource("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}
