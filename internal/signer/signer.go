// Package signer produces the tamper-evident seal on a finalized
// submission: a SHA-256 digest over its deterministic JSON serialization,
// encrypted under a fixed embedded RSA public key (OAEP, SHA-256) and
// base64-encoded.
//
// The digest is reproducible for audit — encoding/json serializes struct
// fields in declaration order and map keys sorted, so identical
// submissions hash identically. The OAEP ciphertext itself is randomized
// by construction; only its length is fixed by the key modulus.
package signer

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/examforge/sessiond/internal/model"
)

// submissionPublicKeyPEM is the fixed, publicly embedded key. The grading
// backend holds the private half and verifies seals offline.
const submissionPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAtQltUs0OkWdhvDYGyHbG
DaGFfglZYpAlFoH2ZVGVrAHGoy8oPnw8/seE/pMaDAcJ8qSLxqlhHI5S5tadiy9o
cARMuvvMbC8OhbnMEbtAP1wvSkjyovm4WL8RyF5T64RALnzcZe9mAfRIfwh0rrYn
e2ZWHq5b/Aq/y13uxhIiSZs1ipjn+FK36K09YTQgXhWO+A3Xs2jATivZ2Y9ouDP9
nuwNFhB49zX3fiGlSAYySTJHctPE/5i8YNwTn2O2ENG3yUp/7+rZhZGB2bexXgs3
BVEbwSsdTPM3sEz2tFF0Kx+KfmUtg8CuzO+m6Rm13+vozeG8gx80KR+iKr9g+FdT
FQIDAQAB
-----END PUBLIC KEY-----`

// Signer seals submissions under one RSA public key.
type Signer struct {
	pub *rsa.PublicKey
}

// New creates a Signer with the embedded submission key.
func New() (*Signer, error) {
	return NewWithKey([]byte(submissionPublicKeyPEM))
}

// NewWithKey creates a Signer from a PEM-encoded PKIX RSA public key.
func NewWithKey(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("signer: no PEM block in public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("signer: parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signer: public key is %T, want RSA", parsed)
	}
	return &Signer{pub: pub}, nil
}

// Digest computes the hex SHA-256 of the submission's payload fields
// (Hash and Signature excluded). Deterministic for identical input.
func (s *Signer) Digest(sub *model.SignedSubmission) (string, error) {
	payload := *sub
	payload.Hash = ""
	payload.Signature = ""

	raw, err := json.Marshal(&payload)
	if err != nil {
		return "", fmt.Errorf("signer: marshal payload: %w", err)
	}

	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:]), nil
}

// Sign fills the submission's Hash and Signature fields in place. Called
// exactly once per submit action.
func (s *Signer) Sign(sub *model.SignedSubmission) error {
	digest, err := s.Digest(sub)
	if err != nil {
		return err
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, s.pub, []byte(digest), nil)
	if err != nil {
		return fmt.Errorf("signer: encrypt digest: %w", err)
	}

	sub.Hash = digest
	sub.Signature = base64.StdEncoding.EncodeToString(ciphertext)
	return nil
}

// CiphertextLen returns the fixed seal length in bytes (the key modulus).
func (s *Signer) CiphertextLen() int {
	return s.pub.Size()
}
