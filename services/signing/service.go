// Package signing applies the qualified signature scheme to canonical report
// bytes and chain snapshots: RSA-PSS with SHA-256 digests and randomized
// padding. Key material is an injected capability; this package never
// generates or persists keys on its own.
package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Algorithm names the signature scheme recorded on every SignedReport.
const Algorithm = "RSA-PSS-SHA256"

// MinKeyBits is the smallest key size accepted for qualified-grade signing.
const MinKeyBits = 2048

var (
	// ErrKeyUnavailable indicates no usable signing key was injected.
	ErrKeyUnavailable = errors.New("signing key unavailable")
	// ErrSignatureMalformed indicates the signature bytes are not a
	// plausible signature for the key (wrong length, empty).
	ErrSignatureMalformed = errors.New("malformed signature")
	// ErrSignatureMismatch indicates a well-formed signature that does not
	// match the content. Callers treat both failures as the same
	// caller-facing kind; the distinction exists for diagnostics.
	ErrSignatureMismatch = errors.New("signature does not match content")
)

var pssOpts = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// Signer signs canonical bytes and verifies signatures on demand.
type Signer struct {
	key          *rsa.PrivateKey
	identity     string
	publicKeyPEM string
	logger       *zap.Logger
}

// New creates a Signer around an injected private key.
func New(key *rsa.PrivateKey, identity string, logger *zap.Logger) (*Signer, error) {
	if key == nil {
		return nil, ErrKeyUnavailable
	}
	if bits := key.N.BitLen(); bits < MinKeyBits {
		return nil, fmt.Errorf("signing key too small: %d bits, need at least %d", bits, MinKeyBits)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return &Signer{
		key:          key,
		identity:     identity,
		publicKeyPEM: string(pubPEM),
		logger:       logger,
	}, nil
}

// Sign produces an RSA-PSS signature over the SHA-256 digest of canonical.
// Side-effect free beyond producing the signature.
func (s *Signer) Sign(canonical []byte) ([]byte, error) {
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], pssOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return sig, nil
}

// Verify checks sig against the canonical bytes using pub. Returns
// ErrSignatureMalformed for implausible signature bytes and
// ErrSignatureMismatch when a well-formed signature does not match.
func (s *Signer) Verify(canonical, sig []byte, pub *rsa.PublicKey) error {
	if pub == nil {
		return ErrKeyUnavailable
	}
	if len(sig) != pub.Size() {
		return ErrSignatureMalformed
	}

	digest := sha256.Sum256(canonical)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOpts); err != nil {
		return ErrSignatureMismatch
	}
	return nil
}

// PublicKey returns the verification key matching the injected signing key.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// PublicKeyPEM returns the PKIX PEM encoding of the verification key, shipped
// alongside every signed artifact so validity can be independently re-derived.
func (s *Signer) PublicKeyPEM() string {
	return s.publicKeyPEM
}

// Identity returns the signer identity recorded on signed artifacts.
func (s *Signer) Identity() string {
	return s.identity
}
