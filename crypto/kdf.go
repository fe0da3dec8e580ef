package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Domain-separation labels for keys derived from the ECDH master secret.
// Every derived key is bound to exactly one purpose; a transport key can
// never double as a signature key.
const (
	KeyDomainTransport           = "transport"
	KeyDomainSignaturePossession = "signature-possession"
	KeyDomainSignatureKnowledge  = "signature-knowledge"
	KeyDomainSignatureBiometry   = "signature-biometry"
	KeyDomainToken               = "token"
	KeyDomainVault               = "vault"
)

// DeriveKey derives a 32-byte key from the master secret for the given
// domain label using HKDF-SHA256.
func DeriveKey(masterSecret []byte, domain string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterSecret, nil, []byte(domain))
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignatureKeys groups the per-factor keys derived from one master secret.
type SignatureKeys struct {
	Possession []byte
	Knowledge  []byte
	Biometry   []byte
}

// DeriveSignatureKeys derives all three factor keys at once.
func DeriveSignatureKeys(masterSecret []byte) (*SignatureKeys, error) {
	possession, err := DeriveKey(masterSecret, KeyDomainSignaturePossession)
	if err != nil {
		return nil, err
	}
	knowledge, err := DeriveKey(masterSecret, KeyDomainSignatureKnowledge)
	if err != nil {
		return nil, err
	}
	biometry, err := DeriveKey(masterSecret, KeyDomainSignatureBiometry)
	if err != nil {
		return nil, err
	}
	return &SignatureKeys{Possession: possession, Knowledge: knowledge, Biometry: biometry}, nil
}
