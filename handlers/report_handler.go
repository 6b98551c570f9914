package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/middleware"
	"github.com/evidentia/audit-plane/utils"
)

// IssueReportRequest is the body of POST /audit/report. From and To are
// pointers so a zero sequence still counts as provided.
type IssueReportRequest struct {
	From *uint64 `json:"from" validate:"required"`
	To   *uint64 `json:"to" validate:"required"`
}

// VerifyReportResponse is the body of POST /audit/report/{id}/verify.
type VerifyReportResponse struct {
	ReportID string `json:"report_id"`
	Valid    bool   `json:"valid"`
}

// IssueReportHandler assembles and signs a report over a chain range
func IssueReportHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestIDFromContext(ctx)

		var req IssueReportRequest
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

		signed, err := deps.Reports.Issue(ctx, *req.From, *req.To)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteCreated(w, signed); err != nil {
			deps.Logger.Error("failed to write response",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}
}

// GetReportHandler retrieves a previously issued signed report
func GetReportHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid report id", nil)
			return
		}

		signed, err := deps.Reports.Get(r.Context(), id)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, signed); err != nil {
			deps.Logger.Error("failed to write response", zap.Error(err))
		}
	}
}

// VerifyReportHandler re-verifies the signature of an issued report
func VerifyReportHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid report id", nil)
			return
		}

		if err := deps.Reports.VerifyIssued(r.Context(), id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, VerifyReportResponse{ReportID: id.String(), Valid: true}); err != nil {
			deps.Logger.Error("failed to write response", zap.Error(err))
		}
	}
}
