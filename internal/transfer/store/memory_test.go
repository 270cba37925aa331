package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

// =============================================================================
// In-Memory Transfer Store Test Suite
// =============================================================================
// Justification for unit tests: the terminal-record guard and the copy
// semantics are invariants the engine relies on.

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	t := transfer.NewTransfer("alice", "bob", "a.txt", "ref-1", s.now)
	s.Require().NoError(s.store.Save(ctx, t))

	got, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(*t, *got)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Error(s.store.Save(ctx, nil))
}

func (s *InMemoryStoreSuite) TestRecordsAreCopied() {
	ctx := context.Background()
	t := transfer.NewTransfer("alice", "bob", "a.txt", "ref-1", s.now)
	s.Require().NoError(s.store.Save(ctx, t))

	t.Status = transfer.StatusCompleted
	got, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(transfer.StatusPending, got.Status)

	got.Receiver = "mallory"
	again, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("bob", again.Receiver)
}

func (s *InMemoryStoreSuite) TestTerminalRecordIsNeverOverwritten() {
	ctx := context.Background()
	t := transfer.NewTransfer("alice", "bob", "a.txt", "ref-1", s.now)
	s.Require().NoError(s.store.Save(ctx, t))
	s.Require().NoError(t.MarkFailed(transfer.KindReplayDetected, "ReplayDetected during handshake", s.now))
	s.Require().NoError(s.store.Save(ctx, t))

	t.Status = transfer.StatusCompleted
	t.DecryptedRef = "decrypted-x"
	err := s.store.Save(ctx, t)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(transfer.StatusFailed, got.Status)
	s.Empty(got.DecryptedRef)
}

func (s *InMemoryStoreSuite) TestListByParticipant() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, transfer.NewTransfer("alice", "bob", "1", "r1", s.now)))
	s.Require().NoError(s.store.Save(ctx, transfer.NewTransfer("bob", "charlie", "2", "r2", s.now)))
	s.Require().NoError(s.store.Save(ctx, transfer.NewTransfer("charlie", "alice", "3", "r3", s.now)))

	bob, err := s.store.ListByParticipant(ctx, "bob")
	s.Require().NoError(err)
	s.Len(bob, 2)

	dave, err := s.store.ListByParticipant(ctx, "dave")
	s.Require().NoError(err)
	s.Empty(dave)
}
