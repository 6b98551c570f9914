// Package chain owns the append path of the audit ledger. Every entry admitted
// here is linked to its predecessor by hash before it is persisted, and the
// whole append path runs under a single writer lock so sequence numbers and
// linkage hashes can never interleave.
package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/internal/canonical"
	"github.com/evidentia/audit-plane/internal/hashchain"
	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/repositories"
	"github.com/evidentia/audit-plane/services"
	"github.com/evidentia/audit-plane/services/gate"
	"github.com/evidentia/audit-plane/services/signing"
)

// Service coordinates schema gating, hash linkage and durable persistence of
// chain entries.
type Service struct {
	mu     sync.Mutex // serializes the whole append path
	gate   *gate.Gate
	ledger repositories.LedgerRepository
	signer *signing.Signer
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a chain service.
func NewService(g *gate.Gate, ledger repositories.LedgerRepository, signer *signing.Signer, logger *zap.Logger) *Service {
	return &Service{
		gate:   g,
		ledger: ledger,
		signer: signer,
		logger: logger,
		now:    time.Now,
	}
}

// Append validates the payload against its kind's contract, links it to the
// current tail and durably persists it. Nothing is written when validation,
// canonicalization or persistence fails, so a failed append leaves the chain
// exactly as it was.
func (s *Service) Append(ctx context.Context, kind models.PayloadKind, payload json.RawMessage) (*models.AuditEntry, error) {
	schemaVersion, err := s.gate.Validate(kind, payload)
	if err != nil {
		return nil, err
	}

	canonicalPayload, err := canonical.CanonicalizeRaw(payload)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "payload is not canonicalizable JSON", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tail, err := s.ledger.Tail(ctx)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain tail", err)
	}

	var sequence uint64
	prevHash := hashchain.GenesisHash
	if tail != nil {
		sequence = tail.Sequence + 1
		prevHash = tail.EntryHash
	}

	// TIMESTAMPTZ keeps microsecond precision, so the hashed timestamp must
	// be truncated before linking or a stored entry would recompute to a
	// different hash after the round trip.
	timestamp := s.now().UTC().Truncate(time.Microsecond)
	if tail != nil && timestamp.Before(tail.Timestamp) {
		// Clock went backwards; clamp so chain timestamps stay monotonic.
		timestamp = tail.Timestamp
	}

	entry := &models.AuditEntry{
		Sequence:      sequence,
		Timestamp:     timestamp,
		Kind:          kind,
		SchemaVersion: schemaVersion,
		Payload:       append(json.RawMessage(nil), payload...),
		PrevHash:      prevHash,
		EntryHash:     hashchain.Link(prevHash, sequence, timestamp, canonicalPayload),
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, services.WrapDurability("append was not durably persisted", err)
	}

	s.logger.Info("chain entry appended",
		zap.Uint64("sequence", entry.Sequence),
		zap.String("kind", string(entry.Kind)),
		zap.String("entry_hash", entry.EntryHash))

	result := entry.Clone()
	return &result, nil
}

// ReadRange returns entries with from <= sequence <= to.
func (s *Service) ReadRange(ctx context.Context, from, to uint64) ([]models.AuditEntry, error) {
	count, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain length", err)
	}
	if count == 0 {
		return nil, services.ErrChainEmpty
	}
	if from > to {
		return nil, services.NewDomainError(services.ErrorTypeRange, "invalid chain range", nil).
			WithDetail("from", from).
			WithDetail("to", to)
	}
	if to >= count {
		return nil, services.NewDomainError(services.ErrorTypeRange, "range outside chain bounds", nil).
			WithDetail("to", to).
			WithDetail("highest_sequence", count-1)
	}

	entries, err := s.ledger.Range(ctx, from, to)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain range", err)
	}
	return entries, nil
}

// ReadAll returns the full chain in sequence order.
func (s *Service) ReadAll(ctx context.Context) ([]models.AuditEntry, error) {
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain", err)
	}
	return entries, nil
}

// Tail returns the newest entry, or nil on an empty chain.
func (s *Service) Tail(ctx context.Context) (*models.AuditEntry, error) {
	tail, err := s.ledger.Tail(ctx)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain tail", err)
	}
	return tail, nil
}

// Length returns the number of chain entries.
func (s *Service) Length(ctx context.Context) (uint64, error) {
	count, err := s.ledger.Count(ctx)
	if err != nil {
		return 0, services.WrapDurability("failed to read chain length", err)
	}
	return count, nil
}

// checkpointBody is the signed portion of a chain checkpoint.
type checkpointBody struct {
	Sequence  uint64 `json:"sequence"`
	EntryHash string `json:"entry_hash"`
}

// Checkpoint signs the current chain tail so external systems can anchor the
// chain state without pulling every entry.
func (s *Service) Checkpoint(ctx context.Context) (*models.ChainCheckpoint, error) {
	tail, err := s.ledger.Tail(ctx)
	if err != nil {
		return nil, services.WrapDurability("failed to read chain tail", err)
	}
	if tail == nil {
		return nil, services.ErrChainEmpty
	}

	body, err := canonical.Canonicalize(checkpointBody{
		Sequence:  tail.Sequence,
		EntryHash: tail.EntryHash,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to canonicalize checkpoint", err)
	}

	sig, err := s.signer.Sign(body)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeSigning, "failed to sign checkpoint", err)
	}

	return &models.ChainCheckpoint{
		Sequence:  tail.Sequence,
		EntryHash: tail.EntryHash,
		Algorithm: signing.Algorithm,
		Signature: base64.StdEncoding.EncodeToString(sig),
		SignedAt:  s.now().UTC(),
	}, nil
}
