package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/utils"
)

// ChainResponse is the body of GET /audit/chain.
type ChainResponse struct {
	Entries []models.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// GetChainHandler returns chain entries, optionally restricted to a
// from/to sequence window
func GetChainHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fromParam := r.URL.Query().Get("from")
		toParam := r.URL.Query().Get("to")

		var entries []models.AuditEntry
		var err error

		if fromParam == "" && toParam == "" {
			entries, err = deps.Chain.ReadAll(ctx)
		} else {
			from, perr := parseSequence(fromParam, 0)
			if perr != nil {
				_ = utils.WriteBadRequest(w, "invalid from parameter", map[string]interface{}{"from": fromParam})
				return
			}

			var to uint64
			if toParam == "" {
				length, lerr := deps.Chain.Length(ctx)
				if lerr != nil {
					HandleServiceError(w, lerr, deps.Logger)
					return
				}
				if length == 0 {
					_ = utils.WriteOK(w, ChainResponse{Entries: []models.AuditEntry{}})
					return
				}
				to = length - 1
			} else {
				to, perr = parseSequence(toParam, 0)
				if perr != nil {
					_ = utils.WriteBadRequest(w, "invalid to parameter", map[string]interface{}{"to": toParam})
					return
				}
			}

			entries, err = deps.Chain.ReadRange(ctx, from, to)
		}

		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		if entries == nil {
			entries = []models.AuditEntry{}
		}

		if err := utils.WriteOK(w, ChainResponse{Entries: entries, Count: len(entries)}); err != nil {
			deps.Logger.Error("failed to write response", zap.Error(err))
		}
	}
}

// ChainCheckpointHandler returns a signed snapshot of the chain tail
func ChainCheckpointHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkpoint, err := deps.Chain.Checkpoint(r.Context())
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, checkpoint); err != nil {
			deps.Logger.Error("failed to write response", zap.Error(err))
		}
	}
}

// parseSequence parses a sequence query parameter, using def when empty.
func parseSequence(param string, def uint64) (uint64, error) {
	if param == "" {
		return def, nil
	}
	return strconv.ParseUint(param, 10, 64)
}
