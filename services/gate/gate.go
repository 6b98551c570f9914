// Package gate validates incoming payloads against the structural contract
// registered for their kind, before any hashing or storage happens. The kind
// set is closed: one contract struct and one validation routine per kind.
package gate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/services"
	"github.com/evidentia/audit-plane/utils"
	"go.uber.org/zap"
)

// contractVersions records the active contract version per kind. A payload is
// validated against the version active at validation time, and the version is
// stamped onto the entry it produces.
var contractVersions = map[models.PayloadKind]string{
	models.KindAuditEvent:            "v1",
	models.KindGovernanceEnforcement: "v1",
	models.KindEvidencePack:          "v1",
}

// auditEventPayload is the contract for event log entries.
type auditEventPayload struct {
	Type       string                 `json:"type" validate:"required,oneof=decision_recorded consequence_logged governance_action evidence_validated report_issued"`
	ID         string                 `json:"id" validate:"required,min=1"`
	Actor      string                 `json:"actor" validate:"omitempty,min=1"`
	OccurredAt string                 `json:"occurred_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Details    map[string]interface{} `json:"details"`
}

// governanceEnforcementPayload is the contract for governance enforcement records.
type governanceEnforcementPayload struct {
	DecisionID       string   `json:"decision_id" validate:"required,min=1"`
	Authority        string   `json:"authority" validate:"required,min=3"`
	ComplianceStatus string   `json:"compliance_status" validate:"required,oneof=compliant non_compliant"`
	Violations       []string `json:"violations" validate:"omitempty,dive,min=1"`
}

// evidencePackPayload is the contract for evidence pack submissions.
type evidencePackPayload struct {
	CaseID       string                 `json:"case_id" validate:"required,min=1"`
	EvidenceType string                 `json:"evidence_type" validate:"required,min=1"`
	DataHash     string                 `json:"data_hash" validate:"required,len=64,hexadecimal"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// Gate validates payloads. Side-effect free: a payload is entirely valid or
// entirely rejected, and nothing is recorded either way.
type Gate struct {
	logger *zap.Logger
}

// New creates a new Gate
func New(logger *zap.Logger) *Gate {
	return &Gate{logger: logger}
}

// Version returns the active contract version for a kind.
func (g *Gate) Version(kind models.PayloadKind) (string, bool) {
	v, ok := contractVersions[kind]
	return v, ok
}

// Validate checks payload against the contract registered for kind and
// returns the contract version it was validated against. Rejections are
// validation DomainErrors carrying the failing field reasons verbatim.
func (g *Gate) Validate(kind models.PayloadKind, payload json.RawMessage) (string, error) {
	version, ok := contractVersions[kind]
	if !ok {
		return "", services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("unknown payload kind %q", kind), nil).
			WithDetail("kind", string(kind))
	}

	var target interface{}
	switch kind {
	case models.KindAuditEvent:
		target = &auditEventPayload{}
	case models.KindGovernanceEnforcement:
		target = &governanceEnforcementPayload{}
	case models.KindEvidencePack:
		target = &evidencePackPayload{}
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return "", decodeError(kind, err)
	}

	if err := utils.ValidateStruct(target); err != nil {
		fields := utils.GetValidationFields(err)
		g.logger.Debug("payload rejected",
			zap.String("kind", string(kind)),
			zap.Any("fields", fields))

		rejection := services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("payload rejected by %s contract %s", kind, version), err)
		for field, reason := range fields {
			rejection.WithDetail(field, reason)
		}
		return "", rejection
	}

	return version, nil
}

// decodeError maps JSON decode failures onto the enumerable rejection reasons.
func decodeError(kind models.PayloadKind, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "payload"
		}
		return services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("payload rejected by %s contract: wrong type", kind), err).
			WithDetail(field, fmt.Sprintf("%s must be of type %s", field, typeErr.Type))
	}
	return services.NewDomainError(services.ErrorTypeValidation,
		fmt.Sprintf("payload rejected by %s contract: malformed JSON", kind), err).
		WithDetail("payload", "payload must be a valid JSON document")
}
