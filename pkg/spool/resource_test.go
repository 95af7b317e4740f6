package spool

import (
	"io"
	"testing"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempFileFactory_DistinctNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := NewTempFileFactory(fs, "/spill", "burst")

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		resource, err := factory.Create()
		require.NoError(t, err)
		require.False(t, seen[resource.Name()], "name %s repeated", resource.Name())
		seen[resource.Name()] = true
		require.NoError(t, resource.Close())
	}
}

func TestTempFileFactory_Defaults(t *testing.T) {
	factory := NewTempFileFactory(afero.NewMemMapFs(), "", "")
	resource, err := factory.Create()
	require.NoError(t, err)
	defer lo.Must0(resource.Remove())

	assert.Contains(t, resource.Name(), "spool-")
}

func TestSpillFile_WriteOpenReadBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := NewTempFileFactory(fs, "/spill", "test")

	resource, err := factory.Create()
	require.NoError(t, err)

	_, err = resource.Write([]byte("part one, "))
	require.NoError(t, err)
	_, err = resource.Write([]byte("part two"))
	require.NoError(t, err)

	reader, err := resource.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "part one, part two", string(content))

	// Writing after the handle was finalized fails instead of corrupting
	// the resource.
	_, err = resource.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSpillFile_RemoveIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := NewTempFileFactory(fs, "/spill", "test")

	resource, err := factory.Create()
	require.NoError(t, err)
	_, err = resource.Write([]byte("data"))
	require.NoError(t, err)

	require.NoError(t, resource.Remove())
	require.NoError(t, resource.Remove(), "removing a removed resource is not an error")

	exists, err := afero.Exists(fs, resource.Name())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTempFileFactory_ExistingTargetRejected(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	factory := NewTempFileFactory(fs, "/spill", "test")

	_, err := factory.Create()
	require.Error(t, err, "read-only filesystem cannot host spill files")
}
