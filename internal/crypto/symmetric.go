package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

const (
	SessionKeySize = 32
	IVSize         = aes.BlockSize
	DigestSize     = sha256.Size
)

// SessionKey is the one-time symmetric material for a single transfer.
// It lives in memory only.
type SessionKey struct {
	Key []byte
	IV  []byte
}

// NewSessionKey draws a fresh 256-bit AES key and 16-byte IV.
func NewSessionKey() (SessionKey, error) {
	buf := make([]byte, SessionKeySize+IVSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return SessionKey{}, fmt.Errorf("session key: %w: %w", ErrCryptoFailure, err)
	}
	return SessionKey{Key: buf[:SessionKeySize], IV: buf[SessionKeySize:]}, nil
}

// Bytes returns key||IV, the form that is wrapped and signed during key exchange.
func (k SessionKey) Bytes() []byte {
	out := make([]byte, 0, len(k.Key)+len(k.IV))
	out = append(out, k.Key...)
	return append(out, k.IV...)
}

// ParseSessionKey splits key||IV produced by Bytes.
func ParseSessionKey(material []byte) (SessionKey, error) {
	if len(material) != SessionKeySize+IVSize {
		return SessionKey{}, fmt.Errorf("session key: %w: want %d bytes, got %d",
			ErrCryptoFailure, SessionKeySize+IVSize, len(material))
	}
	key := make([]byte, SessionKeySize)
	iv := make([]byte, IVSize)
	copy(key, material[:SessionKeySize])
	copy(iv, material[SessionKeySize:])
	return SessionKey{Key: key, IV: iv}, nil
}

// EncryptSymmetric encrypts plaintext with AES-256-CTR. CTR is a stream mode,
// so the ciphertext length equals the plaintext length and there is no padding.
func EncryptSymmetric(plaintext, key, iv []byte) ([]byte, error) {
	stream, err := newStream(key, iv)
	if err != nil {
		return nil, fmt.Errorf("encrypt symmetric: %w", err)
	}
	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)
	return out, nil
}

// DecryptSymmetric reverses EncryptSymmetric.
func DecryptSymmetric(ciphertext, key, iv []byte) ([]byte, error) {
	stream, err := newStream(key, iv)
	if err != nil {
		return nil, fmt.Errorf("decrypt symmetric: %w", err)
	}
	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}

func newStream(key, iv []byte) (cipher.Stream, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCryptoFailure, SessionKeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrCryptoFailure, IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoFailure, err)
	}
	return cipher.NewCTR(block, iv), nil
}

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
