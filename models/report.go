package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportDocument is the canonical report representation over a chain range.
// It exists transiently during report generation; once signed it is persisted
// as part of a SignedReport.
type ReportDocument struct {
	ReportID         uuid.UUID         `json:"report_id"`
	From             uint64            `json:"from"`
	To               uint64            `json:"to"`
	Entries          []AuditEntry      `json:"entries"`
	ContractVersions map[string]string `json:"contract_versions"`
	ChainRootHash    string            `json:"chain_root_hash"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// CanonicalBody is the portion of a report that gets canonicalized and signed.
// ReportID and GeneratedAt are excluded: the same range must always produce
// byte-identical canonical output.
type CanonicalBody struct {
	From             uint64            `json:"from"`
	To               uint64            `json:"to"`
	Entries          []AuditEntry      `json:"entries"`
	ContractVersions map[string]string `json:"contract_versions"`
	ChainRootHash    string            `json:"chain_root_hash"`
}

// Body extracts the signable portion of the document.
func (d *ReportDocument) Body() CanonicalBody {
	return CanonicalBody{
		From:             d.From,
		To:               d.To,
		Entries:          d.Entries,
		ContractVersions: d.ContractVersions,
		ChainRootHash:    d.ChainRootHash,
	}
}

// SignedReport binds a report document to a qualified signature. Immutable
// once created; Signature must verify against the canonical bytes of Report.
type SignedReport struct {
	Report             ReportDocument `json:"report"`
	Canonical          []byte         `json:"canonical"`
	Signature          []byte         `json:"signature"`
	SignerIdentity     string         `json:"signer_identity"`
	SignatureAlgorithm string         `json:"signature_algorithm"`
	SignedAt           time.Time      `json:"signed_at"`
	PublicKeyPEM       string         `json:"public_key_pem"`
}
