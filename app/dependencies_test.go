package app

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/config"
	"github.com/evidentia/audit-plane/services/signing"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{Backend: config.LedgerBackendMemory},
		Signing: config.SigningConfig{
			Identity:       "audit-plane-test",
			AllowEphemeral: true,
		},
		Environment: "test",
	}
}

func TestNewDependenciesMemoryBackend(t *testing.T) {
	deps, err := NewDependencies(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer deps.Close(context.Background())

	assert.NotNil(t, deps.Ledger)
	assert.NotNil(t, deps.Gate)
	assert.NotNil(t, deps.Signer)
	assert.NotNil(t, deps.Chain)
	assert.NotNil(t, deps.Reports)
	assert.NotNil(t, deps.Status)
	assert.Nil(t, deps.DB)
	assert.Equal(t, "audit-plane-test", deps.Signer.Identity())
}

func TestNewDependenciesRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ledger.Backend = "etcd"

	_, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ledger backend")
}

func TestNewDependenciesRequiresKeyWhenEphemeralDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.Signing.AllowEphemeral = false

	_, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signing key configured")
}

func TestNewDependenciesLoadsKeyFromFile(t *testing.T) {
	key, err := signing.GenerateEphemeralKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signing.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := memoryConfig()
	cfg.Signing.KeyFile = path
	cfg.Signing.AllowEphemeral = false

	deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close(context.Background())

	assert.True(t, deps.Signer.PublicKey().Equal(&key.PublicKey))
}
