package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	KeySize = 32 // AES-256
	IVSize  = 12 // 96-bit GCM nonce
	TagSize = 16 // 128-bit auth tag
)

// ErrAuthenticationFailed means the GCM tag did not verify: the ciphertext,
// IV, tag, or key is wrong or was tampered with. No plaintext is ever
// released on this path.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Sealed is the result of one encryption. The auth tag is kept separate from
// the ciphertext so the three parts can be stored independently (blob store
// for the ciphertext, file record for IV and tag).
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// NewKey returns a fresh random 256-bit key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with AES-256-GCM under a random single-use IV.
func Encrypt(plaintext, key []byte) (*Sealed, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the tag to the ciphertext; split it off so the parts
	// can live in different stores.
	out := aesgcm.Seal(nil, iv, plaintext, nil)
	n := len(out) - TagSize

	return &Sealed{
		Ciphertext: out[:n],
		IV:         iv,
		AuthTag:    out[n:],
	}, nil
}

// Decrypt opens ciphertext and verifies the auth tag. Tag verification
// failure fails closed with ErrAuthenticationFailed.
func Decrypt(ciphertext, key, iv, authTag []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid iv length %d", len(iv))
	}
	if len(authTag) != TagSize {
		return nil, fmt.Errorf("invalid auth tag length %d", len(authTag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := aesgcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
