package models

import (
	"encoding/json"
	"time"
)

// PayloadKind selects the structural contract an event payload is validated
// against before it may enter the chain.
type PayloadKind string

const (
	// KindAuditEvent covers decision and consequence event log entries.
	KindAuditEvent PayloadKind = "audit_event"

	// KindGovernanceEnforcement covers governance enforcement records.
	KindGovernanceEnforcement PayloadKind = "governance_enforcement"

	// KindEvidencePack covers evidence pack submissions.
	KindEvidencePack PayloadKind = "evidence_pack"
)

// AuditEventType enumerates the event types accepted inside an audit_event payload.
type AuditEventType string

const (
	EventDecisionRecorded  AuditEventType = "decision_recorded"
	EventConsequenceLogged AuditEventType = "consequence_logged"
	EventGovernanceAction  AuditEventType = "governance_action"
	EventEvidenceValidated AuditEventType = "evidence_validated"
	EventReportIssued      AuditEventType = "report_issued"
)

// AuditEntry is a single link in the append-only chain. Immutable once appended:
// the store never updates or deletes a persisted entry.
type AuditEntry struct {
	Sequence      uint64          `json:"sequence" db:"sequence"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
	Kind          PayloadKind     `json:"kind" db:"kind"`
	SchemaVersion string          `json:"schema_version" db:"schema_version"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	PrevHash      string          `json:"prev_hash" db:"prev_hash"`
	EntryHash     string          `json:"entry_hash" db:"entry_hash"`
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// Clone returns a deep copy so callers can never mutate stored chain state
// through a returned entry.
func (e *AuditEntry) Clone() AuditEntry {
	c := *e
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	return c
}

// ChainCheckpoint is a signed snapshot of the chain tail, consumed by external
// anchoring systems that poll the audit surface.
type ChainCheckpoint struct {
	Sequence  uint64    `json:"sequence"`
	EntryHash string    `json:"entry_hash"`
	Algorithm string    `json:"signature_algorithm"`
	Signature string    `json:"signature"`
	SignedAt  time.Time `json:"signed_at"`
}
