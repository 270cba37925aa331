package transfer

import (
	"errors"
	"fmt"

	"securetransfer/pkg/platform/sentinel"
)

// FailureKind tags why a transfer failed.
type FailureKind string

const (
	KindUnknownIdentity   FailureKind = "UnknownIdentity"
	KindReplayDetected    FailureKind = "ReplayDetected"
	KindSignatureInvalid  FailureKind = "SignatureInvalid"
	KindIntegrityMismatch FailureKind = "IntegrityMismatch"
	KindCryptoFailure     FailureKind = "CryptoFailure"
	KindStorageFailure    FailureKind = "StorageFailure"
)

// IsSecurity reports whether the kind indicates an attack or tampering rather
// than bad input or a broken dependency.
func (k FailureKind) IsSecurity() bool {
	switch k {
	case KindReplayDetected, KindSignatureInvalid, KindIntegrityMismatch:
		return true
	}
	return false
}

// Phase names a step of the protocol.
type Phase string

const (
	PhaseLoad         Phase = "load"
	PhaseKeyRetrieval Phase = "key-retrieval"
	PhaseHandshake    Phase = "handshake"
	PhaseKeyExchange  Phase = "key-exchange"
	PhaseFileTransfer Phase = "file-transfer"
	PhaseCompletion   Phase = "completion"
)

// Signature stages distinguish the three signatures the protocol checks.
const (
	StageHandshake   = "handshake"
	StageKeyExchange = "key-exchange"
	StageFileHash    = "file-hash"
)

var (
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrReplayDetected    = errors.New("replay detected")
	ErrSignatureInvalid  = errors.New("signature invalid")
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	ErrCryptoFailure     = errors.New("crypto failure")
	ErrStorageFailure    = errors.New("storage failure")

	ErrNotPending   = fmt.Errorf("transfer is not pending: %w", sentinel.ErrInvalidState)
	ErrNotCompleted = fmt.Errorf("transfer is not completed: %w", sentinel.ErrInvalidState)
	ErrNotFound     = fmt.Errorf("transfer not found: %w", sentinel.ErrNotFound)
	ErrForbidden    = errors.New("caller is not a participant of this transfer")
	ErrInvalidInput = errors.New("invalid transfer request")
)

var kindSentinels = map[FailureKind]error{
	KindUnknownIdentity:   ErrUnknownIdentity,
	KindReplayDetected:    ErrReplayDetected,
	KindSignatureInvalid:  ErrSignatureInvalid,
	KindIntegrityMismatch: ErrIntegrityMismatch,
	KindCryptoFailure:     ErrCryptoFailure,
	KindStorageFailure:    ErrStorageFailure,
}

// ProtocolError is the single failure type the protocol returns. It matches
// the sentinel of its kind with errors.Is and unwraps to the underlying cause.
type ProtocolError struct {
	Kind  FailureKind
	Phase Phase
	// Stage is set for KindSignatureInvalid only.
	Stage string
	Err   error
}

func (e *ProtocolError) Error() string {
	label := string(e.Kind)
	if e.Stage != "" {
		label += "(" + e.Stage + ")"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s during %s", label, e.Phase)
	}
	return fmt.Sprintf("%s during %s: %v", label, e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && target == s
}

func failure(kind FailureKind, phase Phase, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Phase: phase, Err: err}
}

func signatureFailure(phase Phase, stage string, detail string) *ProtocolError {
	return &ProtocolError{
		Kind:  KindSignatureInvalid,
		Phase: phase,
		Stage: stage,
		Err:   errors.New(detail),
	}
}

// AsProtocolError extracts a ProtocolError from err, classifying anything else
// as a crypto failure in the given phase.
func AsProtocolError(err error, phase Phase) *ProtocolError {
	if err == nil {
		return nil
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr
	}
	return failure(KindCryptoFailure, phase, err)
}
