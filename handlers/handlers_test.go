package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/config"
	"github.com/evidentia/audit-plane/internal/hashchain"
)

func newTestRouter(t *testing.T) (*app.Dependencies, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Ledger: config.LedgerConfig{Backend: config.LedgerBackendMemory},
		Signing: config.SigningConfig{
			Identity:       "audit-plane-test",
			AllowEphemeral: true,
		},
		Environment: "test",
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	r := chi.NewRouter()
	r.Get("/healthz", HealthCheck(deps))
	r.Get("/readyz", ReadinessCheck(deps))
	r.Post("/audit/entry", AppendEntryHandler(deps))
	r.Get("/audit/chain", GetChainHandler(deps))
	r.Get("/audit/chain/checkpoint", ChainCheckpointHandler(deps))
	r.Post("/audit/report", IssueReportHandler(deps))
	r.Get("/audit/report/{id}", GetReportHandler(deps))
	r.Post("/audit/report/{id}/verify", VerifyReportHandler(deps))
	r.Post("/evidence/validate", ValidateEvidenceHandler(deps))
	r.Get("/governance/status", GovernanceStatusHandler(deps))
	return deps, r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func appendEvent(t *testing.T, router http.Handler, id string) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"kind":"audit_event","payload":{"type":"decision_recorded","id":%q,"actor":"svc"}}`, id)
	w := doJSON(t, router, http.MethodPost, "/audit/entry", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData(t, w)
}

func TestAppendEntryChainsSequentially(t *testing.T) {
	_, router := newTestRouter(t)

	first := appendEvent(t, router, "evt-a")
	assert.Equal(t, float64(0), first["sequence"])
	assert.Equal(t, hashchain.GenesisHash, first["prev_hash"])
	assert.Equal(t, "v1", first["schema_version"])

	second := appendEvent(t, router, "evt-b")
	assert.Equal(t, float64(1), second["sequence"])
	assert.Equal(t, first["entry_hash"], second["prev_hash"])
}

func TestAppendEntryRejectsInvalidPayload(t *testing.T) {
	_, router := newTestRouter(t)
	appendEvent(t, router, "evt-a")

	t.Run("missing payload field", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/entry",
			`{"kind":"audit_event","payload":{"type":"decision_recorded"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/entry",
			`{"kind":"telemetry","payload":{}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/entry", `{"kind":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing kind", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/entry", `{"payload":{}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	// None of the rejections above touched the chain.
	w := doJSON(t, router, http.MethodGet, "/governance/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["entry_count"])
	assert.Equal(t, true, data["chain_verified"])
}

func TestGetChain(t *testing.T) {
	_, router := newTestRouter(t)
	appendEvent(t, router, "evt-a")
	appendEvent(t, router, "evt-b")
	appendEvent(t, router, "evt-c")

	t.Run("full chain", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(3), data["count"])
	})

	t.Run("window", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain?from=1&to=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		entries := data["entries"].([]interface{})
		require.Len(t, entries, 2)
		first := entries[0].(map[string]interface{})
		assert.Equal(t, float64(1), first["sequence"])
	})

	t.Run("open-ended from", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain?from=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(1), data["count"])
	})

	t.Run("range past tail", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain?from=0&to=99", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-numeric parameter", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain?from=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChainCheckpoint(t *testing.T) {
	_, router := newTestRouter(t)

	t.Run("empty chain", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/chain/checkpoint", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("signed tail", func(t *testing.T) {
		entry := appendEvent(t, router, "evt-a")

		w := doJSON(t, router, http.MethodGet, "/audit/chain/checkpoint", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, entry["entry_hash"], data["entry_hash"])
		assert.Equal(t, "RSA-PSS-SHA256", data["signature_algorithm"])
		assert.NotEmpty(t, data["signature"])
	})
}

func TestIssueReport(t *testing.T) {
	_, router := newTestRouter(t)
	appendEvent(t, router, "evt-a")
	second := appendEvent(t, router, "evt-b")

	w := doJSON(t, router, http.MethodPost, "/audit/report", `{"from":0,"to":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)

	reportDoc := data["report"].(map[string]interface{})
	assert.Equal(t, second["entry_hash"], reportDoc["chain_root_hash"])
	assert.Equal(t, "audit-plane-test", data["signer_identity"])
	assert.Equal(t, "RSA-PSS-SHA256", data["signature_algorithm"])
	assert.NotEmpty(t, data["signature"])
	assert.NotEmpty(t, data["public_key_pem"])

	t.Run("missing range", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/report", `{"from":0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("range past tail", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/report", `{"from":0,"to":50}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetAndVerifyReport(t *testing.T) {
	_, router := newTestRouter(t)
	appendEvent(t, router, "evt-a")
	appendEvent(t, router, "evt-b")

	w := doJSON(t, router, http.MethodPost, "/audit/report", `{"from":0,"to":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	reportID := data["report"].(map[string]interface{})["report_id"].(string)

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/report/"+reportID, "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData(t, w)
		assert.Equal(t, reportID, got["report"].(map[string]interface{})["report_id"])
	})

	t.Run("verify", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/audit/report/"+reportID+"/verify", "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData(t, w)
		assert.Equal(t, true, got["valid"])
	})

	t.Run("unknown id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/report/3e8c17f4-0000-0000-0000-000000000000", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/audit/report/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateEvidence(t *testing.T) {
	_, router := newTestRouter(t)
	dataHash := "a3f5c8e1b2d4f6a8c0e2b4d6f8a0c2e4b6d8f0a2c4e6b8d0f2a4c6e8b0d2f4a6"

	t.Run("valid pack is recorded", func(t *testing.T) {
		body := fmt.Sprintf(`{"case_id":"case-7","evidence_type":"export","data_hash":%q}`, dataHash)
		w := doJSON(t, router, http.MethodPost, "/evidence/validate", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Equal(t, true, data["valid"])
		assert.Equal(t, "v1", data["contract_version"])
		entry := data["entry"].(map[string]interface{})
		assert.Equal(t, "evidence_pack", entry["kind"])
	})

	t.Run("bad hash is rejected without recording", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/evidence/validate",
			`{"case_id":"case-8","evidence_type":"export","data_hash":"tooshort"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		status := doJSON(t, router, http.MethodGet, "/governance/status", "")
		data := decodeData(t, status)
		assert.Equal(t, float64(1), data["entry_count"])
	})
}

func TestGovernanceStatus(t *testing.T) {
	_, router := newTestRouter(t)

	t.Run("empty chain", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/governance/status", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(0), data["entry_count"])
		assert.Equal(t, hashchain.GenesisHash, data["last_hash"])
		assert.Equal(t, true, data["chain_verified"])
	})

	t.Run("after appends", func(t *testing.T) {
		appendEvent(t, router, "evt-a")
		tail := appendEvent(t, router, "evt-b")

		w := doJSON(t, router, http.MethodGet, "/governance/status", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(2), data["entry_count"])
		assert.Equal(t, tail["entry_hash"], data["last_hash"])
		assert.Equal(t, true, data["chain_verified"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	_, router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	checks := response["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["ledger"])
	assert.Equal(t, "ready", checks["signer"])
}
