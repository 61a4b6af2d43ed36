package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed document identity. The version suffix
// enables future algorithm migration without colliding with old signatures.
const DomainDocument = "duoplan/document/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Signature computes the deterministic fingerprint of a document snapshot.
//
// Two documents have equal signatures iff they are structurally equal under
// the data model (order-sensitive for arrays). The sync engine compares
// signatures to skip redundant writes and to recognize its own just-written
// state echoed back through the push channel.
func Signature(d Document) (string, error) {
	canonical, err := CanonicalDocument(d)
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustSignature is like Signature but panics on error. Use only in tests or
// when the document is known to be well formed.
func MustSignature(d Document) string {
	sig, err := Signature(d)
	if err != nil {
		panic(err)
	}
	return sig
}
