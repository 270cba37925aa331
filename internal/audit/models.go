package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that prove who received what, and when.
	// Examples: completed transfers, decrypted content handed to the receiver.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers protocol violations worth alerting on.
	// Examples: replayed nonces, forged signatures, tampered ciphertext.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// Examples: transfer accepted, transfer failed on bad input.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from the transfer engine and caller layer. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Severity   Severity      `json:"severity,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	TransferID string        `json:"transfer_id,omitempty"`
	// Subject is the identity that initiated the action, usually the sender.
	Subject string `json:"subject"`
	// Counterparty is the other protocol participant, usually the receiver.
	Counterparty string `json:"counterparty,omitempty"`
	Action       string `json:"action"`
	// Kind is the protocol failure kind, empty on success.
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	// Client is the caller's user agent summary when the action came over HTTP.
	Client    string `json:"client,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventTransferInitiated AuditEvent = "transfer_initiated"
	EventTransferCompleted AuditEvent = "transfer_completed"
	EventTransferFailed    AuditEvent = "transfer_failed"
	EventContentRetrieved  AuditEvent = "content_retrieved"

	EventReplayDetected    AuditEvent = "replay_detected"
	EventSignatureRejected AuditEvent = "signature_rejected"
	EventIntegrityMismatch AuditEvent = "integrity_mismatch"
	EventAccessDenied      AuditEvent = "access_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTransferCompleted: CategoryCompliance,
	EventContentRetrieved:  CategoryCompliance,

	EventReplayDetected:    CategorySecurity,
	EventSignatureRejected: CategorySecurity,
	EventIntegrityMismatch: CategorySecurity,
	EventAccessDenied:      CategorySecurity,

	EventTransferInitiated: CategoryOperations,
	EventTransferFailed:    CategoryOperations,
}

var eventSeverities = map[AuditEvent]Severity{
	EventReplayDetected:    SeverityCritical,
	EventSignatureRejected: SeverityCritical,
	EventIntegrityMismatch: SeverityCritical,
	EventAccessDenied:      SeverityWarning,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Severity returns the SIEM severity, SeverityInfo unless the event is a
// security event with a stronger default.
func (e AuditEvent) Severity() Severity {
	if sev, ok := eventSeverities[e]; ok {
		return sev
	}
	return SeverityInfo
}
