package transfer

import (
	"context"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"securetransfer/internal/crypto"
	"securetransfer/internal/nonce"
	"securetransfer/internal/platform/metrics"
)

const tracerName = "securetransfer/internal/transfer"

// NonceSource yields handshake nonces.
type NonceSource func() string

// Step is one line of the protocol transcript.
type Step struct {
	Phase  Phase
	Detail string
}

// Result is what a successful run hands back to the completion step.
type Result struct {
	Plaintext []byte
	Digest    []byte
	Steps     []Step
}

// Protocol runs handshake, key exchange and encrypted transfer between two
// identities. It does not touch storage; Engine does that around it.
type Protocol struct {
	identities IdentityProvider
	nonces     NonceRegistry
	newNonce   NonceSource
	link       Link
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type ProtocolOption func(*Protocol)

// WithNonceSource replaces the default "nonce-<uuid>" generator.
func WithNonceSource(src NonceSource) ProtocolOption {
	return func(p *Protocol) {
		if src != nil {
			p.newNonce = src
		}
	}
}

func WithLink(link Link) ProtocolOption {
	return func(p *Protocol) {
		if link != nil {
			p.link = link
		}
	}
}

func WithProtocolLogger(logger *slog.Logger) ProtocolOption {
	return func(p *Protocol) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithProtocolMetrics(m *metrics.Metrics) ProtocolOption {
	return func(p *Protocol) {
		p.metrics = m
	}
}

func NewProtocol(identities IdentityProvider, nonces NonceRegistry, opts ...ProtocolOption) (*Protocol, error) {
	if identities == nil {
		return nil, errors.New("identity provider is required")
	}
	if nonces == nil {
		return nil, errors.New("nonce registry is required")
	}
	p := &Protocol{
		identities: identities,
		nonces:     nonces,
		newNonce:   nonce.NewToken,
		link:       DirectLink{},
		tracer:     otel.Tracer(tracerName),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

type keyring struct {
	senderPub    *rsa.PublicKey
	senderPriv   *rsa.PrivateKey
	receiverPub  *rsa.PublicKey
	receiverPriv *rsa.PrivateKey
}

// Execute runs every phase in order and stops at the first failure. Any
// returned error is a *ProtocolError.
func (p *Protocol) Execute(ctx context.Context, sender, receiver string, content []byte) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "transfer.execute", trace.WithAttributes(
		attribute.String("transfer.sender", sender),
		attribute.String("transfer.receiver", receiver),
		attribute.Int("transfer.size", len(content)),
	))
	defer span.End()

	res := &Result{}
	var (
		keys        keyring
		senderKey   crypto.SessionKey
		receiverKey crypto.SessionKey
	)

	err := p.phase(ctx, PhaseKeyRetrieval, func(ctx context.Context) error {
		var err error
		keys, err = p.retrieveKeys(sender, receiver)
		if err == nil {
			res.step(PhaseKeyRetrieval, "RSA key pairs loaded for %s and %s", sender, receiver)
		}
		return err
	})
	if err == nil {
		err = p.phase(ctx, PhaseHandshake, func(ctx context.Context) error {
			return p.handshake(ctx, sender, keys, res)
		})
	}
	if err == nil {
		err = p.phase(ctx, PhaseKeyExchange, func(ctx context.Context) error {
			var err error
			senderKey, receiverKey, err = p.exchangeKey(keys, res)
			return err
		})
	}
	if err == nil {
		err = p.phase(ctx, PhaseFileTransfer, func(ctx context.Context) error {
			return p.transferFile(content, keys, senderKey, receiverKey, res)
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (p *Protocol) phase(ctx context.Context, phase Phase, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "transfer."+string(phase),
		trace.WithAttributes(attribute.String("transfer.phase", string(phase))))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.ObservePhase(string(phase), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Protocol) retrieveKeys(sender, receiver string) (keyring, error) {
	var (
		k   keyring
		err error
	)
	if k.senderPub, err = p.identities.PublicKey(sender); err != nil {
		return k, failure(KindUnknownIdentity, PhaseKeyRetrieval, err)
	}
	if k.senderPriv, err = p.identities.PrivateKey(sender); err != nil {
		return k, failure(KindUnknownIdentity, PhaseKeyRetrieval, err)
	}
	if k.receiverPub, err = p.identities.PublicKey(receiver); err != nil {
		return k, failure(KindUnknownIdentity, PhaseKeyRetrieval, err)
	}
	if k.receiverPriv, err = p.identities.PrivateKey(receiver); err != nil {
		return k, failure(KindUnknownIdentity, PhaseKeyRetrieval, err)
	}
	return k, nil
}

func (p *Protocol) handshake(ctx context.Context, sender string, keys keyring, res *Result) error {
	token := []byte(p.newNonce())
	sig, err := crypto.Sign(token, keys.senderPriv)
	if err != nil {
		return failure(KindCryptoFailure, PhaseHandshake, err)
	}
	sealed, err := crypto.EncryptAsymmetric(token, keys.receiverPub)
	if err != nil {
		return failure(KindCryptoFailure, PhaseHandshake, err)
	}
	res.step(PhaseHandshake, "sender created, signed and encrypted a nonce")

	msg := p.link.Handshake(HandshakeMessage{Sender: sender, EncryptedNonce: sealed, NonceSignature: sig})

	received, err := crypto.DecryptAsymmetric(msg.EncryptedNonce, keys.receiverPriv)
	if err != nil {
		return failure(KindCryptoFailure, PhaseHandshake, err)
	}
	fresh, err := p.nonces.CheckAndConsume(ctx, string(received))
	if err != nil {
		return failure(KindStorageFailure, PhaseHandshake, fmt.Errorf("nonce registry: %w", err))
	}
	if !fresh {
		p.metrics.IncrementNonceRejected()
		return failure(KindReplayDetected, PhaseHandshake, fmt.Errorf("nonce %q already consumed", received))
	}
	if !crypto.Verify(received, msg.NonceSignature, keys.senderPub) {
		return signatureFailure(PhaseHandshake, StageHandshake, "nonce signature does not verify against sender key")
	}
	res.step(PhaseHandshake, "receiver verified the sender's nonce signature")
	p.logger.DebugContext(ctx, "Handshake successful")
	return nil
}

// exchangeKey returns the session key as held by the sender (after unwrapping)
// and as held by the receiver (as generated).
func (p *Protocol) exchangeKey(keys keyring, res *Result) (crypto.SessionKey, crypto.SessionKey, error) {
	var none crypto.SessionKey

	generated, err := crypto.NewSessionKey()
	if err != nil {
		return none, none, failure(KindCryptoFailure, PhaseKeyExchange, err)
	}
	material := generated.Bytes()
	sealed, err := crypto.EncryptAsymmetric(material, keys.senderPub)
	if err != nil {
		return none, none, failure(KindCryptoFailure, PhaseKeyExchange, err)
	}
	sig, err := crypto.Sign(material, keys.receiverPriv)
	if err != nil {
		return none, none, failure(KindCryptoFailure, PhaseKeyExchange, err)
	}
	res.step(PhaseKeyExchange, "receiver generated an AES-256 session key and IV, encrypted and signed them")

	msg := p.link.KeyExchange(KeyExchangeMessage{EncryptedKey: sealed, KeySignature: sig})

	unwrapped, err := crypto.DecryptAsymmetric(msg.EncryptedKey, keys.senderPriv)
	if err != nil {
		return none, none, failure(KindCryptoFailure, PhaseKeyExchange, err)
	}
	if !crypto.Verify(unwrapped, msg.KeySignature, keys.receiverPub) {
		return none, none, signatureFailure(PhaseKeyExchange, StageKeyExchange, "session key signature does not verify against receiver key")
	}
	received, err := crypto.ParseSessionKey(unwrapped)
	if err != nil {
		return none, none, failure(KindCryptoFailure, PhaseKeyExchange, err)
	}
	res.step(PhaseKeyExchange, "sender verified the session key signature")
	p.logger.Debug("AES key exchange successful")
	return received, generated, nil
}

func (p *Protocol) transferFile(content []byte, keys keyring, senderKey, receiverKey crypto.SessionKey, res *Result) error {
	digest := crypto.Hash(content)
	ciphertext, err := crypto.EncryptSymmetric(content, senderKey.Key, senderKey.IV)
	if err != nil {
		return failure(KindCryptoFailure, PhaseFileTransfer, err)
	}
	sig, err := crypto.Sign(digest, keys.senderPriv)
	if err != nil {
		return failure(KindCryptoFailure, PhaseFileTransfer, err)
	}
	res.step(PhaseFileTransfer, "sender hashed (%s), encrypted and signed %d bytes", hex.EncodeToString(digest), len(content))

	msg := p.link.File(FileMessage{Ciphertext: ciphertext, Digest: digest, DigestSignature: sig})

	if !crypto.Verify(msg.Digest, msg.DigestSignature, keys.senderPub) {
		return signatureFailure(PhaseFileTransfer, StageFileHash, "digest signature does not verify against sender key")
	}
	plaintext, err := crypto.DecryptSymmetric(msg.Ciphertext, receiverKey.Key, receiverKey.IV)
	if err != nil {
		return failure(KindCryptoFailure, PhaseFileTransfer, err)
	}
	recomputed := crypto.Hash(plaintext)
	if subtle.ConstantTimeCompare(recomputed, msg.Digest) != 1 {
		return failure(KindIntegrityMismatch, PhaseFileTransfer,
			fmt.Errorf("digest %s does not match signed digest %s",
				hex.EncodeToString(recomputed), hex.EncodeToString(msg.Digest)))
	}
	res.step(PhaseFileTransfer, "receiver decrypted the file and the digests match")
	p.logger.Debug("File integrity check successful")

	res.Plaintext = plaintext
	res.Digest = recomputed
	return nil
}

func (r *Result) step(phase Phase, format string, args ...any) {
	r.Steps = append(r.Steps, Step{Phase: phase, Detail: fmt.Sprintf(format, args...)})
}
