package app

import (
	"context"
	"crypto/rsa"
	"fmt"

	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/config"
	"github.com/evidentia/audit-plane/repositories"
	"github.com/evidentia/audit-plane/repositories/memory"
	"github.com/evidentia/audit-plane/repositories/postgres"
	"github.com/evidentia/audit-plane/services/chain"
	"github.com/evidentia/audit-plane/services/gate"
	"github.com/evidentia/audit-plane/services/report"
	"github.com/evidentia/audit-plane/services/signing"
	"github.com/evidentia/audit-plane/services/status"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Only set when the postgres ledger backend is active.
	DB          *postgres.DB
	RepoFactory *postgres.RepositoryFactory

	// Storage
	Ledger repositories.LedgerRepository

	// Services
	Gate    *gate.Gate
	Signer  *signing.Signer
	Chain   *chain.Service
	Reports *report.Service
	Status  *status.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initLedger(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger store: %w", err)
	}

	if err := deps.initSigner(cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}

	deps.Gate = gate.New(logger)
	deps.Chain = chain.NewService(deps.Gate, deps.Ledger, deps.Signer, logger)
	deps.Reports = report.NewService(deps.Chain, deps.Signer, logger)
	deps.Status = status.NewService(deps.Chain, logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.String("signer_identity", deps.Signer.Identity()))
	return deps, nil
}

// initLedger selects and initializes the ledger store backend.
func (d *Dependencies) initLedger(ctx context.Context, cfg *config.Config) error {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendMemory:
		d.Ledger = memory.NewLedgerRepository(d.Logger)
		d.Logger.Warn("using in-memory ledger store, entries will not survive a restart")
		return nil

	case config.LedgerBackendPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}

		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if err := factory.InitSchema(ctx); err != nil {
			factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		d.Ledger = factory.NewLedgerRepository()
		return nil

	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// initSigner loads the configured signing key, or generates an ephemeral one
// when permitted.
func (d *Dependencies) initSigner(cfg *config.Config) error {
	var key *rsa.PrivateKey
	var err error

	switch {
	case cfg.Signing.KeyPEM != "":
		key, err = signing.ParsePrivateKeyPEM([]byte(cfg.Signing.KeyPEM))
		if err != nil {
			return err
		}

	case cfg.Signing.KeyFile != "":
		key, err = signing.LoadPrivateKeyFile(cfg.Signing.KeyFile)
		if err != nil {
			return err
		}

	case cfg.Signing.AllowEphemeral:
		key, err = signing.GenerateEphemeralKey()
		if err != nil {
			return err
		}
		d.Logger.Warn("no signing key configured, generated an ephemeral key; reports will not be verifiable across restarts")

	default:
		return fmt.Errorf("no signing key configured and ephemeral keys are disabled")
	}

	signer, err := signing.New(key, cfg.Signing.Identity, d.Logger)
	if err != nil {
		return err
	}
	d.Signer = signer
	return nil
}

func (d *Dependencies) closeStorage() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
