package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/middleware"
	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/utils"
)

// ValidateEvidenceResponse is the body of POST /evidence/validate.
type ValidateEvidenceResponse struct {
	Valid           bool               `json:"valid"`
	ContractVersion string             `json:"contract_version"`
	Entry           *models.AuditEntry `json:"entry"`
}

// ValidateEvidenceHandler validates an evidence pack and records the
// validated pack on the audit chain. Invalid packs are rejected without
// touching the chain.
func ValidateEvidenceHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestIDFromContext(ctx)

		var payload json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			deps.Logger.Warn("failed to parse request body",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}

		entry, err := deps.Chain.Append(ctx, models.KindEvidencePack, payload)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		deps.Logger.Info("evidence pack validated and recorded",
			zap.String("request_id", requestID),
			zap.Uint64("sequence", entry.Sequence))

		if err := utils.WriteCreated(w, ValidateEvidenceResponse{
			Valid:           true,
			ContractVersion: entry.SchemaVersion,
			Entry:           entry,
		}); err != nil {
			deps.Logger.Error("failed to write response",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}
}
