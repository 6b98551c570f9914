package models

import "time"

// GovernanceStatusSnapshot is a point-in-time, derived summary of chain size,
// latest linkage hash and integrity verdict. Recomputed on every request,
// never persisted.
type GovernanceStatusSnapshot struct {
	EntryCount    uint64    `json:"entry_count"`
	LastHash      string    `json:"last_hash"`
	ChainVerified bool      `json:"chain_verified"`
	GeneratedAt   time.Time `json:"generated_at"`
}
