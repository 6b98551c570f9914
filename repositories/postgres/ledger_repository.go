package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/repositories"
	"go.uber.org/zap"
)

// LedgerRepository implements repositories.LedgerRepository on PostgreSQL.
// Only INSERT and SELECT statements exist here; the table is treated as
// write-once storage.
type LedgerRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB, logger *zap.Logger) repositories.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append durably stores a new chain entry. The primary key on sequence makes
// concurrent duplicate appends fail instead of silently forking the chain.
func (r *LedgerRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			sequence, timestamp, kind, schema_version, payload, prev_hash, entry_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Sequence,
		entry.Timestamp,
		entry.Kind,
		entry.SchemaVersion,
		[]byte(entry.Payload),
		entry.PrevHash,
		entry.EntryHash,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	r.logger.Debug("ledger entry stored",
		zap.Uint64("sequence", entry.Sequence),
		zap.String("kind", string(entry.Kind)))
	return nil
}

// Range retrieves entries with from <= sequence <= to, in sequence order.
func (r *LedgerRepository) Range(ctx context.Context, from, to uint64) ([]models.AuditEntry, error) {
	if from > to {
		return nil, fmt.Errorf("range [%d, %d] is inverted", from, to)
	}

	query := `
		SELECT sequence, timestamp, kind, schema_version, payload, prev_hash, entry_hash
		FROM audit_entries
		WHERE sequence >= $1 AND sequence <= $2
		ORDER BY sequence ASC
	`

	entries, err := r.queryEntries(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	if got, want := uint64(len(entries)), to-from+1; got != want {
		return nil, fmt.Errorf("range [%d, %d] out of bounds: found %d of %d entries", from, to, got, want)
	}
	return entries, nil
}

// All retrieves every entry in sequence order.
func (r *LedgerRepository) All(ctx context.Context) ([]models.AuditEntry, error) {
	query := `
		SELECT sequence, timestamp, kind, schema_version, payload, prev_hash, entry_hash
		FROM audit_entries
		ORDER BY sequence ASC
	`

	return r.queryEntries(ctx, query)
}

// Tail retrieves the highest-sequence entry, or (nil, nil) when the ledger is empty.
func (r *LedgerRepository) Tail(ctx context.Context) (*models.AuditEntry, error) {
	query := `
		SELECT sequence, timestamp, kind, schema_version, payload, prev_hash, entry_hash
		FROM audit_entries
		ORDER BY sequence DESC
		LIMIT 1
	`

	entry := &models.AuditEntry{}
	var payload []byte

	err := r.db.QueryRowContext(ctx, query).Scan(
		&entry.Sequence,
		&entry.Timestamp,
		&entry.Kind,
		&entry.SchemaVersion,
		&payload,
		&entry.PrevHash,
		&entry.EntryHash,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chain tail: %w", err)
	}

	entry.Payload = payload
	return entry, nil
}

// Count returns the number of stored entries.
func (r *LedgerRepository) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// HealthCheck verifies the database is reachable.
func (r *LedgerRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// queryEntries is a helper method to query multiple chain entries
func (r *LedgerRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var payload []byte
		err := rows.Scan(
			&entry.Sequence,
			&entry.Timestamp,
			&entry.Kind,
			&entry.SchemaVersion,
			&payload,
			&entry.PrevHash,
			&entry.EntryHash,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Payload = payload
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entry rows: %w", err)
	}

	return entries, nil
}
