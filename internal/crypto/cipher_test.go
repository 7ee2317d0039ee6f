package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("hello world")},
		{"binary", bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Encrypt(tt.plaintext, key)
			require.NoError(t, err)
			assert.Len(t, sealed.IV, IVSize)
			assert.Len(t, sealed.AuthTag, TagSize)

			plaintext, err := Decrypt(sealed.Ciphertext, key, sealed.IV, sealed.AuthTag)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, plaintext)
		})
	}
}

func TestEncryptUniqueIV(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	a, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestDecryptTamperFailsClosed(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	sealed, err := Encrypt([]byte("sensitive document"), key)
	require.NoError(t, err)

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		tampered := append([]byte{}, sealed.Ciphertext...)
		tampered[0] ^= 0x01

		plaintext, err := Decrypt(tampered, key, sealed.IV, sealed.AuthTag)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.Nil(t, plaintext)
	})

	t.Run("flipped tag bit", func(t *testing.T) {
		tag := append([]byte{}, sealed.AuthTag...)
		tag[0] ^= 0x01

		plaintext, err := Decrypt(sealed.Ciphertext, key, sealed.IV, tag)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.Nil(t, plaintext)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewKey()
		require.NoError(t, err)

		plaintext, err := Decrypt(sealed.Ciphertext, other, sealed.IV, sealed.AuthTag)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.Nil(t, plaintext)
	})
}

func TestDecryptRejectsBadLengths(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	sealed, err := Encrypt([]byte("x"), key)
	require.NoError(t, err)

	_, err = Decrypt(sealed.Ciphertext, key, sealed.IV[:4], sealed.AuthTag)
	assert.Error(t, err)

	_, err = Decrypt(sealed.Ciphertext, key, sealed.IV, sealed.AuthTag[:8])
	assert.Error(t, err)

	_, err = Decrypt(sealed.Ciphertext, key[:16], sealed.IV, sealed.AuthTag)
	assert.Error(t, err)
}
