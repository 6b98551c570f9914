// Package report assembles legal report documents over chain ranges and binds
// them to qualified signatures. Issued reports are registered so their
// signatures can be re-verified later without re-reading the chain.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/internal/canonical"
	"github.com/evidentia/audit-plane/internal/hashchain"
	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/services"
	"github.com/evidentia/audit-plane/services/chain"
	"github.com/evidentia/audit-plane/services/signing"
)

// Service assembles, signs and registers legal reports.
type Service struct {
	mu       sync.RWMutex
	chain    *chain.Service
	signer   *signing.Signer
	registry map[uuid.UUID]*models.SignedReport
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a report service.
func NewService(chainSvc *chain.Service, signer *signing.Signer, logger *zap.Logger) *Service {
	return &Service{
		chain:    chainSvc,
		signer:   signer,
		registry: make(map[uuid.UUID]*models.SignedReport),
		logger:   logger,
		now:      time.Now,
	}
}

// Assemble builds a report document over the range [from, to]. The whole chain
// prefix up to `to` is re-verified first: a report is never assembled over a
// chain whose linkage does not hold.
func (s *Service) Assemble(ctx context.Context, from, to uint64) (*models.ReportDocument, error) {
	prefix, err := s.chain.ReadRange(ctx, 0, to)
	if err != nil {
		return nil, err
	}

	if result := hashchain.Verify(prefix); !result.Verified {
		s.logger.Error("chain verification failed during report assembly",
			zap.Uint64("tampered_at", result.TamperedAt))
		return nil, services.NewDomainError(services.ErrorTypeIntegrity,
			"chain integrity violation detected", nil).
			WithDetail("tampered_at", result.TamperedAt)
	}

	if from > to {
		return nil, services.NewDomainError(services.ErrorTypeRange, "invalid report range", nil).
			WithDetail("from", from).
			WithDetail("to", to)
	}
	entries := prefix[from:]

	versions := make(map[string]string)
	for _, e := range entries {
		versions[string(e.Kind)] = e.SchemaVersion
	}

	return &models.ReportDocument{
		ReportID:         uuid.New(),
		From:             from,
		To:               to,
		Entries:          entries,
		ContractVersions: versions,
		ChainRootHash:    entries[len(entries)-1].EntryHash,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

// Issue assembles, canonicalizes and signs a report, records its issuance on
// the chain and registers the result. Either every step succeeds or nothing
// is observable: a failed issuance registers no report and leaves no entry.
func (s *Service) Issue(ctx context.Context, from, to uint64) (*models.SignedReport, error) {
	doc, err := s.Assemble(ctx, from, to)
	if err != nil {
		return nil, err
	}

	canonicalBytes, err := canonical.Canonicalize(doc.Body())
	if err != nil {
		return nil, services.WrapInternal("failed to canonicalize report", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("issuance aborted", err)
	}

	sig, err := s.signer.Sign(canonicalBytes)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeSigning, "failed to sign report", err)
	}

	signed := &models.SignedReport{
		Report:             *doc,
		Canonical:          canonicalBytes,
		Signature:          sig,
		SignerIdentity:     s.signer.Identity(),
		SignatureAlgorithm: signing.Algorithm,
		SignedAt:           s.now().UTC(),
		PublicKeyPEM:       s.signer.PublicKeyPEM(),
	}

	if err := s.recordIssuance(ctx, signed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.registry[doc.ReportID] = signed
	s.mu.Unlock()

	s.logger.Info("report issued",
		zap.String("report_id", doc.ReportID.String()),
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.String("chain_root_hash", doc.ChainRootHash))
	return signed, nil
}

// recordIssuance appends a report_issued provenance entry to the chain, so
// report issuance is itself auditable.
func (s *Service) recordIssuance(ctx context.Context, signed *models.SignedReport) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  string(models.EventReportIssued),
		"id":    fmt.Sprintf("report-%s", signed.Report.ReportID),
		"actor": signed.SignerIdentity,
		"details": map[string]interface{}{
			"report_id":       signed.Report.ReportID.String(),
			"from":            signed.Report.From,
			"to":              signed.Report.To,
			"chain_root_hash": signed.Report.ChainRootHash,
		},
	})
	if err != nil {
		return services.WrapInternal("failed to encode issuance record", err)
	}

	if _, err := s.chain.Append(ctx, models.KindAuditEvent, payload); err != nil {
		return err
	}
	return nil
}

// Get retrieves an issued report by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.SignedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("lookup aborted", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	signed, ok := s.registry[id]
	if !ok {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "signed report not found", nil).
			WithDetail("report_id", id.String())
	}
	return signed, nil
}

// VerifyIssued re-verifies the signature of a previously issued report using
// the public key recorded at issuance.
func (s *Service) VerifyIssued(ctx context.Context, id uuid.UUID) error {
	signed, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pub, err := signing.ParsePublicKeyPEM([]byte(signed.PublicKeyPEM))
	if err != nil {
		return services.WrapError(services.ErrorTypeSigning, "recorded public key unusable", err)
	}

	if err := s.signer.Verify(signed.Canonical, signed.Signature, pub); err != nil {
		return services.NewDomainError(services.ErrorTypeSigning, "signature verification failed", err).
			WithDetail("report_id", id.String())
	}
	return nil
}

// Count returns the number of issued reports held in the registry.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}
