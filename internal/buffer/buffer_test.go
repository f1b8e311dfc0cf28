package buffer

import (
	"testing"

	"github.com/rabbitson87/atomic-http/herd"
	"github.com/stretchr/testify/require"
)

func TestBufferAppend(t *testing.T) {
	t.Run("within limits", func(t *testing.T) {
		b := New(herd.NewArena(64), 8, 1024)
		require.True(t, b.Append([]byte("Hello, ")))
		require.True(t, b.Append([]byte("world!")))
		require.Equal(t, "Hello, world!", string(b.Bytes()))
		require.Equal(t, 13, b.Len())
	})

	t.Run("overflow leaves the buffer untouched", func(t *testing.T) {
		b := New(herd.NewArena(64), 8, 10)
		require.True(t, b.Append([]byte("12345678")))
		require.False(t, b.Append([]byte("abc")))
		require.Equal(t, "12345678", string(b.Bytes()))
	})

	t.Run("grows past the initial space", func(t *testing.T) {
		b := New(herd.NewArena(64), 4, 1<<20)
		payload := make([]byte, 10000)
		for i := range payload {
			payload[i] = byte(i)
		}
		require.True(t, b.Append(payload))
		require.Equal(t, payload, b.Bytes())
	})
}

func TestBufferViewsSurviveGrowth(t *testing.T) {
	b := New(herd.NewArena(64), 8, 1<<20)
	require.True(t, b.Append([]byte("anchored")))
	view := b.Bytes()[:8]

	// growth reallocates, but the arena keeps the old block readable
	require.True(t, b.Append(make([]byte, 10000)))
	require.Equal(t, "anchored", string(view))
}

func TestBufferWrite(t *testing.T) {
	b := New(herd.NewArena(64), 8, 10)

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = b.Write([]byte("too much data"))
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, "hello", string(b.Bytes()))
}
