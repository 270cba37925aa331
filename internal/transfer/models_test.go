package transfer_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

func TestTransferStateMachine(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("pending to completed", func(t *testing.T) {
		tr := transfer.NewTransfer("alice", "bob", "f", "ref", now)
		require.Equal(t, transfer.StatusPending, tr.Status)
		require.NoError(t, tr.MarkCompleted("decrypted-1", now.Add(time.Second)))
		assert.Equal(t, transfer.StatusCompleted, tr.Status)
		assert.Equal(t, "decrypted-1", tr.DecryptedRef)

		assert.ErrorIs(t, tr.MarkFailed(transfer.KindCryptoFailure, "late", now), sentinel.ErrInvalidState)
		assert.ErrorIs(t, tr.MarkCompleted("again", now), transfer.ErrNotPending)
		assert.Equal(t, "decrypted-1", tr.DecryptedRef)
	})

	t.Run("pending to failed", func(t *testing.T) {
		tr := transfer.NewTransfer("alice", "bob", "f", "ref", now)
		require.NoError(t, tr.MarkFailed(transfer.KindReplayDetected, "ReplayDetected during handshake", now))
		assert.Equal(t, transfer.StatusFailed, tr.Status)
		assert.True(t, tr.Status.IsTerminal())
		assert.ErrorIs(t, tr.MarkCompleted("x", now), transfer.ErrNotPending)
		assert.Empty(t, tr.DecryptedRef)
	})

	t.Run("participants", func(t *testing.T) {
		tr := transfer.NewTransfer("alice", "bob", "f", "ref", now)
		assert.True(t, tr.IsParticipant("ALICE"))
		assert.True(t, tr.IsReceiver(" bob"))
		assert.False(t, tr.IsReceiver("alice"))
		assert.False(t, tr.IsParticipant("charlie"))
	})
}

func TestProtocolError(t *testing.T) {
	cause := errors.New("digest signature does not verify")
	err := &transfer.ProtocolError{
		Kind:  transfer.KindSignatureInvalid,
		Phase: transfer.PhaseFileTransfer,
		Stage: transfer.StageFileHash,
		Err:   cause,
	}

	assert.Equal(t, "SignatureInvalid(file-hash) during file-transfer: digest signature does not verify", err.Error())
	assert.ErrorIs(t, err, transfer.ErrSignatureInvalid)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, transfer.ErrIntegrityMismatch)

	wrapped := fmt.Errorf("run: %w", err)
	assert.Same(t, err, transfer.AsProtocolError(wrapped, transfer.PhaseCompletion))

	other := transfer.AsProtocolError(errors.New("unexpected"), transfer.PhaseCompletion)
	assert.Equal(t, transfer.KindCryptoFailure, other.Kind)
	assert.Nil(t, transfer.AsProtocolError(nil, transfer.PhaseCompletion))

	assert.True(t, transfer.KindReplayDetected.IsSecurity())
	assert.False(t, transfer.KindUnknownIdentity.IsSecurity())
}
