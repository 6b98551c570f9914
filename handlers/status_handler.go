package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/utils"
)

// GovernanceStatusHandler returns the derived governance status summary
func GovernanceStatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := deps.Status.Snapshot(r.Context())
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, snapshot); err != nil {
			deps.Logger.Error("failed to write response", zap.Error(err))
		}
	}
}
