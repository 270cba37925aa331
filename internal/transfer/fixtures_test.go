package transfer_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"securetransfer/internal/crypto"
	"securetransfer/internal/keystore"
	"securetransfer/internal/transfer"
)

var sharedKeys = sync.OnceValues(func() (*keystore.Store, error) {
	return keystore.Bootstrap(context.Background(), "alice", "bob", "charlie")
})

// testKeys returns a keystore holding alice, bob and charlie. RSA generation
// is slow, so every test in the package shares one store.
func testKeys(t *testing.T) *keystore.Store {
	t.Helper()
	ks, err := sharedKeys()
	require.NoError(t, err)
	return ks
}

// rewriteLink lets a test act as an attacker on one leg of the protocol.
type rewriteLink struct {
	transfer.DirectLink
	handshake   func(transfer.HandshakeMessage) transfer.HandshakeMessage
	keyExchange func(transfer.KeyExchangeMessage) transfer.KeyExchangeMessage
	file        func(transfer.FileMessage) transfer.FileMessage
}

func (l rewriteLink) Handshake(m transfer.HandshakeMessage) transfer.HandshakeMessage {
	if l.handshake != nil {
		return l.handshake(m)
	}
	return m
}

func (l rewriteLink) KeyExchange(m transfer.KeyExchangeMessage) transfer.KeyExchangeMessage {
	if l.keyExchange != nil {
		return l.keyExchange(m)
	}
	return m
}

func (l rewriteLink) File(m transfer.FileMessage) transfer.FileMessage {
	if l.file != nil {
		return l.file(m)
	}
	return m
}

// flipCiphertextBit models bit-level corruption of the encrypted file in transit.
func flipCiphertextBit(m transfer.FileMessage) transfer.FileMessage {
	m.Ciphertext = bytes.Clone(m.Ciphertext)
	m.Ciphertext[len(m.Ciphertext)/2] ^= 0x01
	return m
}

// forgedBy re-signs data with identity's key, the way an attacker holding a
// valid but wrong key would.
func forgedBy(t *testing.T, identity string, data []byte) []byte {
	t.Helper()
	priv, err := testKeys(t).PrivateKey(identity)
	require.NoError(t, err)
	sig, err := crypto.Sign(data, priv)
	require.NoError(t, err)
	return sig
}
