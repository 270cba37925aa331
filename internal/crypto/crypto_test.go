package crypto

import (
	"bytes"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = sync.OnceValues(func() ([2]*rsa.PrivateKey, error) {
	var keys [2]*rsa.PrivateKey
	for i := range keys {
		k, err := GenerateKeyPair()
		if err != nil {
			return keys, err
		}
		keys[i] = k
	}
	return keys, nil
})

func keys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	k, err := testKeys()
	require.NoError(t, err)
	return k[0], k[1]
}

func TestGenerateKeyPair(t *testing.T) {
	a, _ := keys(t)
	assert.Equal(t, AsymmetricKeyBits, a.N.BitLen())
}

func TestAsymmetricRoundTrip(t *testing.T) {
	a, b := keys(t)
	msg := []byte("nonce-6f1c2f4e")

	ct, err := EncryptAsymmetric(msg, &a.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, msg, ct)

	pt, err := DecryptAsymmetric(ct, a)
	require.NoError(t, err)
	assert.Equal(t, msg, pt)

	t.Run("wrong key fails as crypto failure", func(t *testing.T) {
		_, err := DecryptAsymmetric(ct, b)
		require.ErrorIs(t, err, ErrCryptoFailure)
	})

	t.Run("flipped bit fails as crypto failure", func(t *testing.T) {
		bad := bytes.Clone(ct)
		bad[10] ^= 0x01
		_, err := DecryptAsymmetric(bad, a)
		require.ErrorIs(t, err, ErrCryptoFailure)
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := EncryptAsymmetric(msg, nil)
		require.ErrorIs(t, err, ErrNilKey)
		_, err = DecryptAsymmetric(ct, nil)
		require.ErrorIs(t, err, ErrNilKey)
	})
}

func TestSignVerify(t *testing.T) {
	a, b := keys(t)
	data := []byte("hello world")

	sig, err := Sign(data, a)
	require.NoError(t, err)

	assert.True(t, Verify(data, sig, &a.PublicKey))
	assert.False(t, Verify(data, sig, &b.PublicKey), "signature by another key must not verify")
	assert.False(t, Verify([]byte("hello worle"), sig, &a.PublicKey))
	assert.False(t, Verify(data, sig, nil))

	_, err = Sign(data, nil)
	assert.True(t, errors.Is(err, ErrNilKey))
}

func TestSymmetricRoundTrip(t *testing.T) {
	sk, err := NewSessionKey()
	require.NoError(t, err)
	require.Len(t, sk.Key, SessionKeySize)
	require.Len(t, sk.IV, IVSize)

	for _, size := range []int{0, 1, 15, 16, 17, 1 << 20} {
		plaintext := bytes.Repeat([]byte{0xA5}, size)
		ct, err := EncryptSymmetric(plaintext, sk.Key, sk.IV)
		require.NoError(t, err)
		require.Len(t, ct, size)

		pt, err := DecryptSymmetric(ct, sk.Key, sk.IV)
		require.NoError(t, err)
		require.True(t, bytes.Equal(plaintext, pt), "size %d", size)
	}
}

func TestSymmetricRejectsBadLengths(t *testing.T) {
	sk, err := NewSessionKey()
	require.NoError(t, err)

	_, err = EncryptSymmetric([]byte("x"), sk.Key[:16], sk.IV)
	require.ErrorIs(t, err, ErrCryptoFailure)

	_, err = DecryptSymmetric([]byte("x"), sk.Key, sk.IV[:8])
	require.ErrorIs(t, err, ErrCryptoFailure)
}

func TestSymmetricBitFlipChangesPlaintext(t *testing.T) {
	sk, err := NewSessionKey()
	require.NoError(t, err)
	plaintext := []byte("the quick brown fox")

	ct, err := EncryptSymmetric(plaintext, sk.Key, sk.IV)
	require.NoError(t, err)
	ct[3] ^= 0x80

	pt, err := DecryptSymmetric(ct, sk.Key, sk.IV)
	require.NoError(t, err)
	assert.NotEqual(t, Hash(plaintext), Hash(pt))
}

func TestSessionKeyMaterial(t *testing.T) {
	sk, err := NewSessionKey()
	require.NoError(t, err)

	parsed, err := ParseSessionKey(sk.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sk.Key, parsed.Key)
	assert.Equal(t, sk.IV, parsed.IV)

	_, err = ParseSessionKey(sk.Bytes()[:40])
	require.ErrorIs(t, err, ErrCryptoFailure)

	other, err := NewSessionKey()
	require.NoError(t, err)
	assert.NotEqual(t, sk.Bytes(), other.Bytes())
}

func TestHash(t *testing.T) {
	h := Hash([]byte("hello world"))
	assert.Len(t, h, DigestSize)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		hex.EncodeToString(h))
	assert.Len(t, Hash(nil), DigestSize)
}
