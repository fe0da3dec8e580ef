package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
)

// All elliptic-curve material in the protocol lives on NIST P-256. Public
// keys travel as uncompressed points, private keys as raw 32-byte scalars;
// both are base64-encoded before they reach storage or the wire.

var curve = elliptic.P256()

var (
	ErrInvalidPublicKey  = errors.New("crypto: invalid EC public key")
	ErrInvalidPrivateKey = errors.New("crypto: invalid EC private key")
)

// KeyPair holds one P-256 key pair.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// GenerateKeyPair creates a fresh P-256 key pair from the CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivateKey: priv, PublicKey: &priv.PublicKey}, nil
}

// PublicKeyToBytes serializes a public key as an uncompressed curve point.
func PublicKeyToBytes(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(curve, pub.X, pub.Y)
}

// PublicKeyFromBytes parses an uncompressed curve point and verifies it is
// on P-256.
func PublicKeyFromBytes(data []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(curve, data)
	if x == nil {
		return nil, ErrInvalidPublicKey
	}
	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKey
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// PrivateKeyToBytes serializes a private key as its raw 32-byte scalar.
func PrivateKeyToBytes(priv *ecdsa.PrivateKey) []byte {
	out := make([]byte, 32)
	priv.D.FillBytes(out)
	return out
}

// PrivateKeyFromBytes rebuilds a private key from a raw scalar.
func PrivateKeyFromBytes(data []byte) (*ecdsa.PrivateKey, error) {
	if len(data) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	d := new(big.Int).SetBytes(data)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, ErrInvalidPrivateKey
	}
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = d
	priv.X, priv.Y = curve.ScalarBaseMult(data)
	return priv, nil
}

// SharedSecret computes the ECDH master secret: the X coordinate of the
// scalar product, left-padded to 32 bytes.
func SharedSecret(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if pub == nil || pub.X == nil {
		return nil, ErrInvalidPublicKey
	}
	x, _ := curve.ScalarMult(pub.X, pub.Y, PrivateKeyToBytes(priv))
	if x == nil {
		return nil, ErrInvalidPublicKey
	}
	out := make([]byte, 32)
	x.FillBytes(out)
	return out, nil
}

// RandomBytes returns n bytes from the CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}
