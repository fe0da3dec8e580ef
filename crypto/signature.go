package crypto

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// SignatureType names the authentication factor combination of a request
// signature. Composite types concatenate factors with underscores in the
// canonical order possession, knowledge, biometry.
type SignatureType string

const (
	SignaturePossession                  SignatureType = "possession"
	SignatureKnowledge                   SignatureType = "knowledge"
	SignatureBiometry                    SignatureType = "biometry"
	SignaturePossessionKnowledge         SignatureType = "possession_knowledge"
	SignaturePossessionBiometry          SignatureType = "possession_biometry"
	SignaturePossessionKnowledgeBiometry SignatureType = "possession_knowledge_biometry"
)

var ErrUnknownSignatureType = errors.New("crypto: unknown signature type")

// FactorKeys resolves the ordered factor key list for a signature type.
func (t SignatureType) FactorKeys(keys *SignatureKeys) ([][]byte, error) {
	switch t {
	case SignaturePossession:
		return [][]byte{keys.Possession}, nil
	case SignatureKnowledge:
		return [][]byte{keys.Knowledge}, nil
	case SignatureBiometry:
		return [][]byte{keys.Biometry}, nil
	case SignaturePossessionKnowledge:
		return [][]byte{keys.Possession, keys.Knowledge}, nil
	case SignaturePossessionBiometry:
		return [][]byte{keys.Possession, keys.Biometry}, nil
	case SignaturePossessionKnowledgeBiometry:
		return [][]byte{keys.Possession, keys.Knowledge, keys.Biometry}, nil
	}
	return nil, ErrUnknownSignatureType
}

// ParseSignatureType normalizes a wire value into a known signature type.
func ParseSignatureType(value string) (SignatureType, error) {
	t := SignatureType(strings.ToLower(strings.TrimSpace(value)))
	switch t {
	case SignaturePossession, SignatureKnowledge, SignatureBiometry,
		SignaturePossessionKnowledge, SignaturePossessionBiometry,
		SignaturePossessionKnowledgeBiometry:
		return t, nil
	}
	return "", ErrUnknownSignatureType
}

func counterBlock(counter int64) []byte {
	block := make([]byte, 16)
	binary.BigEndian.PutUint64(block[8:], uint64(counter))
	return block
}

// ComputeSignature computes the request signature for one counter value:
// per factor, the factor key is ratcheted with the counter block and the
// resulting key MACs the signed data; the last four bytes of each digest
// collapse into eight decimal digits, components joined by dashes.
func ComputeSignature(factorKeys [][]byte, counter int64, data []byte, applicationSecret string) string {
	block := counterBlock(counter)
	components := make([]string, 0, len(factorKeys))
	for _, key := range factorKeys {
		ctrMac := hmac.New(sha256.New, key)
		ctrMac.Write(block)
		counterKey := ctrMac.Sum(nil)

		mac := hmac.New(sha256.New, counterKey)
		mac.Write(data)
		mac.Write([]byte("&"))
		mac.Write([]byte(applicationSecret))
		digest := mac.Sum(nil)

		offset := len(digest) - 4
		value := binary.BigEndian.Uint32(digest[offset:]) & 0x7FFFFFFF
		components = append(components, fmt.Sprintf("%08d", value%100000000))
	}
	return strings.Join(components, "-")
}

// VerifySignature compares a received signature against the expected one in
// constant time.
func VerifySignature(factorKeys [][]byte, counter int64, data []byte, applicationSecret, signature string) bool {
	expected := ComputeSignature(factorKeys, counter, data, applicationSecret)
	if len(expected) != len(signature) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// SignActivationCode signs an activation code with the master private key.
// The device verifies the signature with the bundled master public key
// before it trusts the code.
func SignActivationCode(activationCode string, masterPrivateKey *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256([]byte(activationCode))
	return ecdsa.SignASN1(rand.Reader, masterPrivateKey, digest[:])
}

// VerifyActivationCodeSignature checks an activation code signature.
func VerifyActivationCodeSignature(activationCode string, signature []byte, masterPublicKey *ecdsa.PublicKey) bool {
	digest := sha256.Sum256([]byte(activationCode))
	return ecdsa.VerifyASN1(masterPublicKey, digest[:], signature)
}

// ComputeDataSignature signs arbitrary payload bytes with an EC private
// key. Backs the offline signature payloads.
func ComputeDataSignature(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(data)
	return ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
}

// ComputeTokenDigest MACs a token validation challenge. The device proves
// possession of the token secret without sending it.
func ComputeTokenDigest(tokenSecret, nonce []byte, timestamp int64) []byte {
	mac := hmac.New(sha256.New, tokenSecret)
	mac.Write(nonce)
	mac.Write([]byte("&"))
	mac.Write([]byte(fmt.Sprintf("%d", timestamp)))
	return mac.Sum(nil)
}

// VerifyTokenDigest compares token digests in constant time.
func VerifyTokenDigest(tokenSecret, nonce []byte, timestamp int64, digest []byte) bool {
	expected := ComputeTokenDigest(tokenSecret, nonce, timestamp)
	return hmac.Equal(expected, digest)
}
