package postgres

import (
	"context"

	"github.com/evidentia/audit-plane/config"
	"github.com/evidentia/audit-plane/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages the postgres-backed repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{db: db, logger: logger}, nil
}

// InitSchema initializes the ledger schema.
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx)
}

// NewLedgerRepository creates the ledger repository instance
func (f *RepositoryFactory) NewLedgerRepository() repositories.LedgerRepository {
	return NewLedgerRepository(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
