package repositories

import (
	"context"

	"github.com/evidentia/audit-plane/models"
)

// LedgerRepository persists the hash-chained audit ledger. The ledger is
// append-only: implementations expose no update or delete operations, and
// Append must not return success until the entry is durably stored.
type LedgerRepository interface {
	// Append durably stores a new chain entry. The entry's sequence must be
	// exactly one past the current tail.
	Append(ctx context.Context, entry *models.AuditEntry) error

	// Range retrieves entries with from <= sequence <= to, in sequence order.
	Range(ctx context.Context, from, to uint64) ([]models.AuditEntry, error)

	// All retrieves every entry in sequence order.
	All(ctx context.Context) ([]models.AuditEntry, error)

	// Tail retrieves the highest-sequence entry, or (nil, nil) when the
	// ledger is empty.
	Tail(ctx context.Context) (*models.AuditEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (uint64, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}
