package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// AsymmetricKeyBits is the modulus size of every identity keypair.
const AsymmetricKeyBits = 2048

var (
	ErrCryptoFailure = errors.New("crypto: operation failed")
	ErrNilKey        = errors.New("crypto: key is nil")
)

// GenerateKeyPair creates a fresh RSA-2048 keypair.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, AsymmetricKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w: %w", ErrCryptoFailure, err)
	}
	return key, nil
}

// EncryptAsymmetric wraps plaintext for the holder of pub using RSA-OAEP/SHA-256.
func EncryptAsymmetric(plaintext []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("encrypt asymmetric: %w", ErrNilKey)
	}
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt asymmetric: %w: %w", ErrCryptoFailure, err)
	}
	return out, nil
}

// DecryptAsymmetric reverses EncryptAsymmetric. Any malformed or foreign
// ciphertext is reported as ErrCryptoFailure.
func DecryptAsymmetric(ciphertext []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("decrypt asymmetric: %w", ErrNilKey)
	}
	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt asymmetric: %w: %w", ErrCryptoFailure, err)
	}
	return out, nil
}

// Sign produces a SHA256withRSA signature over data.
func Sign(data []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("sign: %w", ErrNilKey)
	}
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w: %w", ErrCryptoFailure, err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over data by the owner of pub.
// A mismatch is a normal false result, not an error.
func Verify(data, sig []byte, pub *rsa.PublicKey) bool {
	if pub == nil {
		return false
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
