package transfer

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transfer is the persisted record of one file transfer.
type Transfer struct {
	ID               uuid.UUID
	Sender           string
	Receiver         string
	OriginalFileName string
	StoredRef        string
	DecryptedRef     string
	Status           Status
	FailureKind      FailureKind
	FailureReason    string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// NewTransfer creates a PENDING transfer for raw content already stored under storedRef.
func NewTransfer(sender, receiver, fileName, storedRef string, now time.Time) *Transfer {
	return &Transfer{
		ID:               uuid.New(),
		Sender:           sender,
		Receiver:         receiver,
		OriginalFileName: fileName,
		StoredRef:        storedRef,
		Status:           StatusPending,
		CreatedAt:        now,
	}
}

// MarkCompleted moves a pending transfer to COMPLETED.
func (t *Transfer) MarkCompleted(decryptedRef string, now time.Time) error {
	if t.Status != StatusPending {
		return ErrNotPending
	}
	t.Status = StatusCompleted
	t.DecryptedRef = decryptedRef
	t.CompletedAt = &now
	return nil
}

// MarkFailed moves a pending transfer to FAILED with the given reason.
func (t *Transfer) MarkFailed(kind FailureKind, reason string, now time.Time) error {
	if t.Status != StatusPending {
		return ErrNotPending
	}
	t.Status = StatusFailed
	t.FailureKind = kind
	t.FailureReason = reason
	t.CompletedAt = &now
	return nil
}

func (t *Transfer) IsSender(identity string) bool {
	return strings.EqualFold(strings.TrimSpace(identity), t.Sender)
}

func (t *Transfer) IsReceiver(identity string) bool {
	return strings.EqualFold(strings.TrimSpace(identity), t.Receiver)
}

// IsParticipant reports whether identity is the sender or the receiver.
func (t *Transfer) IsParticipant(identity string) bool {
	return t.IsSender(identity) || t.IsReceiver(identity)
}

// Outcome is the terminal result of running a transfer. Err is set only when
// the outcome could not be recorded at all.
type Outcome struct {
	TransferID   uuid.UUID
	Status       Status
	DecryptedRef string
	Failure      *ProtocolError
	Err          error
}

// Succeeded reports whether the transfer completed.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Status == StatusCompleted
}
