package spool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The two buffer kinds must be indistinguishable through the Buffer
// contract; every test here runs against both.
func forEachBufferKind(t *testing.T, capacity int, test func(t *testing.T, buf Buffer)) {
	t.Helper()
	for _, kind := range []BufferKind{BufferSlice, BufferMmap} {
		t.Run(string(kind), func(t *testing.T) {
			buf, err := NewBuffer(kind, capacity)
			require.NoError(t, err)
			defer func() {
				require.NoError(t, buf.Release())
			}()
			test(t, buf)
		})
	}
}

func TestBuffer_WriteAndDrain(t *testing.T) {
	forEachBufferKind(t, 16, func(t *testing.T, buf Buffer) {
		assert.Equal(t, 16, buf.Cap())
		assert.Zero(t, buf.Len())
		assert.True(t, buf.Fits(16))
		assert.False(t, buf.Fits(17))

		buf.Write([]byte("hello"))
		assert.Equal(t, 5, buf.Len())
		assert.True(t, buf.Fits(11))
		assert.False(t, buf.Fits(12))

		var out bytes.Buffer
		require.NoError(t, buf.DrainTo(&out))
		assert.Equal(t, "hello", out.String())
		assert.Zero(t, buf.Len(), "drain empties the buffer")
	})
}

func TestBuffer_PeekRestoresCursor(t *testing.T) {
	forEachBufferKind(t, 16, func(t *testing.T, buf Buffer) {
		buf.Write([]byte("abc"))

		var peeked bytes.Buffer
		require.NoError(t, buf.PeekTo(&peeked))
		assert.Equal(t, "abc", peeked.String())
		assert.Equal(t, 3, buf.Len(), "peek must not consume")

		// Writes after a peek land exactly where they would have anyway.
		buf.Write([]byte("def"))

		var all bytes.Buffer
		require.NoError(t, buf.DrainTo(&all))
		assert.Equal(t, "abcdef", all.String())
	})
}

func TestBuffer_RepeatedPeekIsIdempotent(t *testing.T) {
	forEachBufferKind(t, 8, func(t *testing.T, buf Buffer) {
		buf.Write([]byte("xy"))
		for i := 0; i < 3; i++ {
			var out bytes.Buffer
			require.NoError(t, buf.PeekTo(&out))
			assert.Equal(t, "xy", out.String())
		}
		assert.Equal(t, 2, buf.Len())
	})
}

func TestBuffer_DrainEmptyWritesNothing(t *testing.T) {
	forEachBufferKind(t, 8, func(t *testing.T, buf Buffer) {
		var out bytes.Buffer
		require.NoError(t, buf.DrainTo(&out))
		require.NoError(t, buf.PeekTo(&out))
		assert.Zero(t, out.Len())
	})
}

func TestBuffer_ReleaseIsIdempotent(t *testing.T) {
	for _, kind := range []BufferKind{BufferSlice, BufferMmap} {
		t.Run(string(kind), func(t *testing.T) {
			buf, err := NewBuffer(kind, 8)
			require.NoError(t, err)
			require.NoError(t, buf.Release())
			require.NoError(t, buf.Release())
		})
	}
}

func TestNewBuffer_UnknownKind(t *testing.T) {
	_, err := NewBuffer("shared-memory", 8)
	require.Error(t, err)
}
