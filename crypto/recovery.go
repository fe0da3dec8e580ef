package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

// Recovery codes share the activation code alphabet and checksum. Each code
// owns an ordered set of ten-digit PUKs; only HMAC digests of the PUKs are
// stored, under a key stretched from the master DB encryption key with the
// recovery code itself as salt.

const pukDigits = 10

const pukHashIterations = 10000

// GenerateRecoveryCode creates a random checksum-valid recovery code.
func GenerateRecoveryCode() (string, error) {
	return GenerateActivationCode()
}

// GeneratePuk creates one random PUK of ten decimal digits.
func GeneratePuk() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(pukDigits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", pukDigits, n), nil
}

// DerivePukHashKey stretches the master key into the HMAC key for PUK
// digests of a single recovery code.
func DerivePukHashKey(masterKey []byte, recoveryCode string) []byte {
	return pbkdf2.Key(masterKey, []byte(recoveryCode), pukHashIterations, 32, sha256.New)
}

// HashPuk computes the stored digest of one PUK.
func HashPuk(puk string, hashKey []byte) string {
	mac := hmac.New(sha256.New, hashKey)
	mac.Write([]byte(puk))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyPuk compares a candidate PUK against a stored digest in constant
// time.
func VerifyPuk(puk, storedHash string, hashKey []byte) bool {
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, hashKey)
	mac.Write([]byte(puk))
	return hmac.Equal(mac.Sum(nil), expected)
}
