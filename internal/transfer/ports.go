package transfer

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks IdentityProvider,NonceRegistry,ContentStore,TransferStore,AuditPublisher

import (
	"context"
	"crypto/rsa"

	"github.com/google/uuid"

	"securetransfer/internal/audit"
)

// IdentityProvider resolves identities to keys. Misses must wrap an error the
// caller can classify; the protocol reports every miss as UnknownIdentity.
type IdentityProvider interface {
	PublicKey(identity string) (*rsa.PublicKey, error)
	PrivateKey(identity string) (*rsa.PrivateKey, error)
}

// NonceRegistry atomically records a nonce, returning false if it was seen before.
type NonceRegistry interface {
	CheckAndConsume(ctx context.Context, token string) (bool, error)
}

// ContentStore holds raw uploads and decrypted results.
type ContentStore interface {
	StoreRaw(ctx context.Context, originalName string, data []byte) (string, error)
	LoadRaw(ctx context.Context, ref string) ([]byte, error)
	StoreDecrypted(ctx context.Context, data []byte, originalName string) (string, error)
	LoadDecrypted(ctx context.Context, ref string) ([]byte, error)
}

// TransferStore persists transfer records.
type TransferStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	Save(ctx context.Context, t *Transfer) error
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
