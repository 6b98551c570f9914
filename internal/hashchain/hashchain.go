// Package hashchain computes and verifies the deterministic linkage hashes of
// the audit chain. Each entry's hash covers (sequence, timestamp, payload,
// prev_hash); modifying any persisted entry breaks the chain from that point
// forward.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/evidentia/audit-plane/internal/canonical"
	"github.com/evidentia/audit-plane/models"
)

// Algorithm names the digest scheme fixed for the chain's lifetime. A future
// algorithm migration starts a new, explicitly versioned chain segment rather
// than reinterpreting existing entries.
const Algorithm = "SHA-256"

// GenesisHash is the sentinel prev_hash of the first entry: an all-zero digest.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// Link computes the entry hash over (sequence, timestamp, canonical payload,
// prev_hash). The payload must already be in canonical form.
func Link(prevHash string, sequence uint64, timestamp time.Time, canonicalPayload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|", sequence, timestamp.UTC().Format(time.RFC3339Nano))
	h.Write(canonicalPayload)
	fmt.Fprintf(h, "|%s", prevHash)
	return hex.EncodeToString(h.Sum(nil))
}

// Result is the outcome of a chain verification walk.
type Result struct {
	Verified bool
	// TamperedAt is the sequence of the first divergent entry. Only
	// meaningful when Verified is false.
	TamperedAt uint64
}

// Verify re-walks entries from genesis, recomputing each hash and checking
// prev_hash linkage. Returns the first divergent sequence, or Verified.
func Verify(entries []models.AuditEntry) Result {
	return VerifyFrom(GenesisHash, entries)
}

// VerifyFrom walks a chain segment whose first entry must link to prevHash.
// Used for incremental verification: callers pass the hash of the last
// already-verified entry and only the entries appended since.
func VerifyFrom(prevHash string, entries []models.AuditEntry) Result {
	for i := range entries {
		e := &entries[i]

		if e.PrevHash != prevHash {
			return Result{Verified: false, TamperedAt: e.Sequence}
		}

		payload, err := canonical.CanonicalizeRaw(e.Payload)
		if err != nil {
			// A stored payload that no longer parses is tampering,
			// not an operational failure.
			return Result{Verified: false, TamperedAt: e.Sequence}
		}
		if Link(e.PrevHash, e.Sequence, e.Timestamp, payload) != e.EntryHash {
			return Result{Verified: false, TamperedAt: e.Sequence}
		}

		prevHash = e.EntryHash
	}
	return Result{Verified: true}
}
