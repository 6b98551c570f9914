package status

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evidentia/audit-plane/internal/hashchain"
	"github.com/evidentia/audit-plane/models"
	"github.com/evidentia/audit-plane/repositories/memory"
	"github.com/evidentia/audit-plane/services/chain"
	"github.com/evidentia/audit-plane/services/gate"
	"github.com/evidentia/audit-plane/services/signing"
)

var testKey *rsa.PrivateKey

func TestMain(m *testing.M) {
	key, err := rsa.GenerateKey(rand.Reader, signing.MinKeyBits)
	if err != nil {
		panic(err)
	}
	testKey = key
	os.Exit(m.Run())
}

type fixture struct {
	chain  *chain.Service
	status *Service
	ledger *memory.LedgerRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	ledger := memory.NewLedgerRepository(logger).(*memory.LedgerRepository)
	signer, err := signing.New(testKey, "status-test", logger)
	require.NoError(t, err)
	chainSvc := chain.NewService(gate.New(logger), ledger, signer, logger)
	return &fixture{
		chain:  chainSvc,
		status: NewService(chainSvc, logger),
		ledger: ledger,
	}
}

func (f *fixture) appendEvents(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"type":"decision_recorded","id":"evt-%d"}`, i))
		_, err := f.chain.Append(context.Background(), models.KindAuditEvent, payload)
		require.NoError(t, err)
	}
}

func TestSnapshotEmptyChain(t *testing.T) {
	f := newFixture(t)

	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), snap.EntryCount)
	assert.Equal(t, hashchain.GenesisHash, snap.LastHash)
	assert.True(t, snap.ChainVerified)
	assert.False(t, snap.GeneratedAt.IsZero())
}

func TestSnapshotReflectsAppends(t *testing.T) {
	f := newFixture(t)
	f.appendEvents(t, 2)

	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)

	tail, err := f.chain.Tail(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), snap.EntryCount)
	assert.Equal(t, tail.EntryHash, snap.LastHash)
	assert.True(t, snap.ChainVerified)
}

func TestSnapshotVerifiesIncrementally(t *testing.T) {
	f := newFixture(t)
	f.appendEvents(t, 3)

	_, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.status.verifiedThrough)

	f.appendEvents(t, 2)
	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), snap.EntryCount)
	assert.True(t, snap.ChainVerified)
	assert.Equal(t, uint64(5), f.status.verifiedThrough)
}

func TestSnapshotDetectsTamperedPayload(t *testing.T) {
	f := newFixture(t)
	f.appendEvents(t, 3)

	entries, err := f.ledger.All(context.Background())
	require.NoError(t, err)
	forged := entries[2].Clone()
	forged.Payload = json.RawMessage(`{"type":"decision_recorded","id":"forged"}`)
	f.ledger.Replace(2, forged)

	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ChainVerified)
	assert.Equal(t, uint64(2), f.status.tamperedAt)
}

func TestTamperedVerdictIsSticky(t *testing.T) {
	f := newFixture(t)
	f.appendEvents(t, 2)

	// Verify the clean prefix first, then corrupt an already-verified
	// entry. The watermark will not re-walk it, but the verdict from a
	// later detection must never flip back.
	_, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)

	f.appendEvents(t, 1)
	entries, err := f.ledger.All(context.Background())
	require.NoError(t, err)
	forged := entries[2].Clone()
	forged.PrevHash = hashchain.GenesisHash
	f.ledger.Replace(2, forged)

	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)
	require.False(t, snap.ChainVerified)

	// Appending valid entries afterwards does not restore trust.
	f.appendEvents(t, 1)
	snap, err = f.status.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ChainVerified)
}

func TestSnapshotDetectsTruncation(t *testing.T) {
	f := newFixture(t)
	f.appendEvents(t, 3)

	_, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)

	f.ledger.Truncate(1)

	snap, err := f.status.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ChainVerified)
}
