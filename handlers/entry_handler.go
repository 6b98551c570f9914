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

// AppendEntryRequest is the body of POST /audit/entry.
type AppendEntryRequest struct {
	Kind    string          `json:"kind" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// AppendEntryHandler appends a validated payload to the audit chain
func AppendEntryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestIDFromContext(ctx)

		var req AppendEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			deps.Logger.Warn("failed to parse request body",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}

		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		entry, err := deps.Chain.Append(ctx, models.PayloadKind(req.Kind), req.Payload)
		if err != nil {
			deps.Logger.Debug("append rejected",
				zap.String("request_id", requestID),
				zap.String("kind", req.Kind),
				zap.Error(err))
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteCreated(w, entry); err != nil {
			deps.Logger.Error("failed to write response",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}
}
