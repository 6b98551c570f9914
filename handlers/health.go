package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/evidentia/audit-plane/app"
	"go.uber.org/zap"
)

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck performs a more thorough readiness check
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := map[string]interface{}{
			"status": "ready",
			"checks": map[string]string{},
		}

		// Check ledger store
		if deps.Ledger == nil {
			response["status"] = "not_ready"
			response["checks"].(map[string]string)["ledger"] = "not_initialized"
		} else if err := deps.Ledger.HealthCheck(ctx); err != nil {
			response["status"] = "not_ready"
			response["checks"].(map[string]string)["ledger"] = "unhealthy"
			deps.Logger.Error("ledger health check failed", zap.Error(err))
		} else {
			response["checks"].(map[string]string)["ledger"] = "healthy"
		}

		// Check signer
		if deps.Signer == nil {
			response["status"] = "not_ready"
			response["checks"].(map[string]string)["signer"] = "not_initialized"
		} else {
			response["checks"].(map[string]string)["signer"] = "ready"
		}

		w.Header().Set("Content-Type", "application/json")
		if response["status"] == "ready" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}
