// Package memory provides an in-process ledger store for development and
// tests. It honors the same append-only contract as the postgres store but
// offers no durability across restarts.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/repositories"
	"go.uber.org/zap"
)

// LedgerRepository implements repositories.LedgerRepository on a slice.
type LedgerRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	logger  *zap.Logger
}

// NewLedgerRepository creates an empty in-memory ledger.
func NewLedgerRepository(logger *zap.Logger) repositories.LedgerRepository {
	return &LedgerRepository{logger: logger}
}

// Append stores a new chain entry.
func (r *LedgerRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if want := uint64(len(r.entries)); entry.Sequence != want {
		return fmt.Errorf("sequence gap: got %d, want %d", entry.Sequence, want)
	}

	r.entries = append(r.entries, entry.Clone())
	r.logger.Debug("ledger entry stored",
		zap.Uint64("sequence", entry.Sequence),
		zap.String("kind", string(entry.Kind)))
	return nil
}

// Range retrieves entries with from <= sequence <= to.
func (r *LedgerRepository) Range(ctx context.Context, from, to uint64) ([]models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if from > to || to >= uint64(len(r.entries)) {
		return nil, fmt.Errorf("range [%d, %d] out of bounds for %d entries", from, to, len(r.entries))
	}

	out := make([]models.AuditEntry, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, r.entries[i].Clone())
	}
	return out, nil
}

// All retrieves every entry in sequence order.
func (r *LedgerRepository) All(ctx context.Context) ([]models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AuditEntry, 0, len(r.entries))
	for i := range r.entries {
		out = append(out, r.entries[i].Clone())
	}
	return out, nil
}

// Tail retrieves the highest-sequence entry, or (nil, nil) when empty.
func (r *LedgerRepository) Tail(ctx context.Context) (*models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, nil
	}
	tail := r.entries[len(r.entries)-1].Clone()
	return &tail, nil
}

// Count returns the number of stored entries.
func (r *LedgerRepository) Count(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.entries)), nil
}

// Replace overwrites a stored entry in place, bypassing the append-only
// contract. Exists solely so tests can simulate storage-level tampering.
func (r *LedgerRepository) Replace(sequence uint64, entry models.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sequence < uint64(len(r.entries)) {
		r.entries[sequence] = entry.Clone()
	}
}

// Truncate drops all entries at or above sequence, bypassing the append-only
// contract. Test support, like Replace.
func (r *LedgerRepository) Truncate(sequence uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sequence < uint64(len(r.entries)) {
		r.entries = r.entries[:sequence]
	}
}

// HealthCheck always succeeds for the in-memory store.
func (r *LedgerRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
