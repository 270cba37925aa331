package keystore

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"securetransfer/internal/crypto"
	"securetransfer/pkg/platform/sentinel"
)

var (
	ErrUnknownIdentity  = fmt.Errorf("unknown identity: %w", sentinel.ErrNotFound)
	ErrAlreadyGenerated = fmt.Errorf("keypair already generated: %w", sentinel.ErrConflict)
	errEmptyIdentity    = errors.New("identity is required")
)

// Store maps identities to RSA keypairs. Keys are created once, before the
// store is shared, and never mutated afterwards, so lookups take no lock.
type Store struct {
	keys map[string]*rsa.PrivateKey
}

func New() *Store {
	return &Store{keys: make(map[string]*rsa.PrivateKey)}
}

// Bootstrap builds a store holding a keypair for each identity. RSA generation
// dominates startup, so the keys are generated concurrently.
func Bootstrap(ctx context.Context, identities ...string) (*Store, error) {
	normalized := make([]string, 0, len(identities))
	for _, id := range identities {
		n := Normalize(id)
		if n == "" {
			return nil, errEmptyIdentity
		}
		if slices.Contains(normalized, n) {
			return nil, fmt.Errorf("bootstrap %q: %w", n, ErrAlreadyGenerated)
		}
		normalized = append(normalized, n)
	}

	generated := make([]*rsa.PrivateKey, len(normalized))
	g, ctx := errgroup.WithContext(ctx)
	for i := range normalized {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, err := crypto.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("bootstrap %q: %w", normalized[i], err)
			}
			generated[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := New()
	for i, id := range normalized {
		s.keys[id] = generated[i]
	}
	return s, nil
}

// Generate creates a keypair for identity. Rotation is not supported: a second
// call for the same identity fails and leaves the existing key in place.
func (s *Store) Generate(identity string) error {
	id := Normalize(identity)
	if id == "" {
		return errEmptyIdentity
	}
	if _, ok := s.keys[id]; ok {
		return fmt.Errorf("generate %q: %w", id, ErrAlreadyGenerated)
	}
	key, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate %q: %w", id, err)
	}
	s.keys[id] = key
	return nil
}

func (s *Store) PublicKey(identity string) (*rsa.PublicKey, error) {
	key, err := s.lookup(identity)
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}

func (s *Store) PrivateKey(identity string) (*rsa.PrivateKey, error) {
	return s.lookup(identity)
}

// Has reports whether identity has a keypair.
func (s *Store) Has(identity string) bool {
	_, ok := s.keys[Normalize(identity)]
	return ok
}

// Identities lists the known identities in sorted order.
func (s *Store) Identities() []string {
	out := make([]string, 0, len(s.keys))
	for id := range s.keys {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Store) lookup(identity string) (*rsa.PrivateKey, error) {
	key, ok := s.keys[Normalize(identity)]
	if !ok {
		return nil, fmt.Errorf("no keys found for user %q: %w", identity, ErrUnknownIdentity)
	}
	return key, nil
}

// Normalize folds an identity to its lookup form.
func Normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
