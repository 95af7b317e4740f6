package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolkit/spool/pkg/spool"
)

func newTestMux(t *testing.T, out io.Writer, mainName string, entries []EntrySpec) (*Multiplexer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	factory := spool.NewTempFileFactory(fs, "/spill", "mux")
	mux, err := New(out, mainName, entries, factory)
	require.NoError(t, err)
	return mux, fs
}

// readZip returns the container's entries as name -> content, in file
// order alongside the ordered names.
func readZip(t *testing.T, data []byte) (map[string]string, []string) {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := make(map[string]string, len(reader.File))
	var order []string
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		found[file.Name] = string(content)
		order = append(order, file.Name)
	}
	return found, order
}

func TestMultiplexer_Interleaving(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main.log", []EntrySpec{
		{Name: "a.txt", Threshold: 4},
		{Name: "b.txt", Threshold: 4},
	})
	defer mux.Cleanup()

	write := func(s string) {
		t.Helper()
		_, err := mux.Write([]byte(s))
		require.NoError(t, err)
	}

	write("main ")
	require.NoError(t, mux.SetActive("a.txt"))
	write("AAA")
	require.NoError(t, mux.SetActive("b.txt"))
	write("BBB")
	require.NoError(t, mux.SetActive("a.txt"))
	write("AAA2")
	require.NoError(t, mux.SetActive("main.log"))
	write("stream")

	require.NoError(t, mux.Merge())
	require.NoError(t, mux.Close())

	found, order := readZip(t, out.Bytes())
	assert.Equal(t, []string{"main.log", "a.txt", "b.txt"}, order,
		"main first, then side entries in registration order")
	assert.Equal(t, "main stream", found["main.log"])
	assert.Equal(t, "AAAAAA2", found["a.txt"])
	assert.Equal(t, "BBB", found["b.txt"])
}

func TestMultiplexer_MergeOrderIsRegistrationOrder(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{
		{Name: "first", Threshold: 8},
		{Name: "second", Threshold: 8},
		{Name: "third", Threshold: 8},
	})
	defer mux.Cleanup()

	// Write in reverse of registration order.
	for _, name := range []string{"third", "second", "first"} {
		require.NoError(t, mux.SetActive(name))
		_, err := mux.Write([]byte(name))
		require.NoError(t, err)
	}

	require.NoError(t, mux.Merge())
	require.NoError(t, mux.Close())

	_, order := readZip(t, out.Bytes())
	assert.Equal(t, []string{"main", "first", "second", "third"}, order)
}

func TestMultiplexer_MainEntryStreamsEagerly(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{{Name: "side", Threshold: 8}})
	defer mux.Cleanup()

	payload := strings.Repeat("0123456789abcdef", 4096)
	_, err := mux.Write([]byte(payload))
	require.NoError(t, err)

	// Allow for the container's own small write buffering; the bulk of
	// the payload must already be at the output before any merge.
	assert.Greater(t, out.Len(), len(payload)/2,
		"main entry bytes must reach the output before merge")
}

func TestMultiplexer_SpilledAndCompressedEntries(t *testing.T) {
	var out bytes.Buffer
	mux, fs := newTestMux(t, &out, "main", []EntrySpec{
		{Name: "plain", Threshold: 8},
		{Name: "gzipped", Threshold: 8, Codec: spool.CodecGzip},
		{Name: "zstded", Threshold: 8, Codec: spool.CodecZstd, Buffer: spool.BufferMmap},
	})
	defer mux.Cleanup()

	content := strings.Repeat("spill worthy content. ", 64)
	for _, name := range []string{"plain", "gzipped", "zstded"} {
		require.NoError(t, mux.SetActive(name))
		_, err := mux.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, mux.Merge())
	require.NoError(t, mux.Close())
	mux.Cleanup()

	found, _ := readZip(t, out.Bytes())
	assert.Equal(t, content, found["plain"])
	assert.Equal(t, content, found["gzipped"])
	assert.Equal(t, content, found["zstded"])

	entries, err := afero.ReadDir(fs, "/spill")
	require.NoError(t, err)
	assert.Empty(t, entries, "cleanup must leave no spill files behind")
}

func TestMultiplexer_EmptySideEntry(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{{Name: "untouched", Threshold: 8}})
	defer mux.Cleanup()

	_, err := mux.Write([]byte("only main"))
	require.NoError(t, err)

	require.NoError(t, mux.Merge())
	require.NoError(t, mux.Close())

	found, _ := readZip(t, out.Bytes())
	assert.Equal(t, "", found["untouched"], "registered but unwritten entries are present and empty")
}

func TestNew_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := spool.NewTempFileFactory(fs, "/spill", "mux")

	tests := []struct {
		name     string
		mainName string
		entries  []EntrySpec
		wantErr  error
	}{
		{
			name:     "duplicate entry names",
			mainName: "main",
			entries:  []EntrySpec{{Name: "dup", Threshold: 8}, {Name: "dup", Threshold: 8}},
			wantErr:  ErrDuplicateEntry,
		},
		{
			name:     "entry collides with main",
			mainName: "main",
			entries:  []EntrySpec{{Name: "main", Threshold: 8}},
			wantErr:  ErrDuplicateEntry,
		},
		{
			name:     "empty main name",
			mainName: "",
		},
		{
			name:     "non-positive threshold",
			mainName: "main",
			entries:  []EntrySpec{{Name: "bad", Threshold: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := New(&out, tt.mainName, tt.entries, factory)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMultiplexer_SetActiveUnknownEntry(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{{Name: "known", Threshold: 8}})
	defer mux.Cleanup()

	err := mux.SetActive("unknown")
	assert.ErrorIs(t, err, ErrUnknownEntry)

	// The active entry is unchanged after a failed switch.
	_, err = mux.Write([]byte("still main"))
	require.NoError(t, err)
}

func TestMultiplexer_MergeRunsOnce(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{{Name: "side", Threshold: 8}})
	defer mux.Cleanup()

	require.NoError(t, mux.Merge())
	assert.ErrorIs(t, mux.Merge(), ErrMerged)

	_, err := mux.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrMerged)
}

func TestMultiplexer_CloseIsIdempotentAndKeepsOutput(t *testing.T) {
	var out bytes.Buffer
	mux, _ := newTestMux(t, &out, "main", []EntrySpec{{Name: "side", Threshold: 8}})

	_, err := mux.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mux.Merge())
	require.NoError(t, mux.Close())
	require.NoError(t, mux.Close())

	_, err = mux.Write([]byte("after close"))
	assert.ErrorIs(t, err, spool.ErrClosed)

	// The output still holds a fully readable container.
	found, _ := readZip(t, out.Bytes())
	assert.Equal(t, "payload", found["main"])
}
