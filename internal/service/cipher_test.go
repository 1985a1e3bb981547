package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewXChaChaCipher("secret")
	require.NoError(t, err)

	for _, plaintext := range [][]byte{{}, []byte("hello"), bytes.Repeat([]byte("z"), 1<<20)} {
		sealed, err := c.Seal(plaintext, []byte("note-1"))
		require.NoError(t, err)

		opened, err := c.Open(sealed, []byte("note-1"))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(plaintext, opened))
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	c, err := NewXChaChaCipher("secret")
	require.NoError(t, err)

	sealed, err := c.Seal([]byte("hello"), []byte("note-1"))
	require.NoError(t, err)

	t.Run("other associated data", func(t *testing.T) {
		_, err := c.Open(sealed, []byte("note-2"))
		assert.Error(t, err)
	})

	t.Run("flipped byte", func(t *testing.T) {
		tampered := append([]byte{}, sealed...)
		tampered[len(tampered)-1] ^= 0x01
		_, err := c.Open(tampered, []byte("note-1"))
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := c.Open(sealed[:10], []byte("note-1"))
		assert.Error(t, err)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := NewXChaChaCipher("another secret")
		require.NoError(t, err)
		_, err = other.Open(sealed, []byte("note-1"))
		assert.Error(t, err)
	})
}

func TestCipherUsesFreshNonces(t *testing.T) {
	c, err := NewXChaChaCipher("secret")
	require.NoError(t, err)

	a, err := c.Seal([]byte("same"), nil)
	require.NoError(t, err)
	b, err := c.Seal([]byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewCipherRequiresSecret(t *testing.T) {
	_, err := NewXChaChaCipher("")
	assert.Error(t, err)
}
