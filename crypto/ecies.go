package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// The activation layer wraps sensitive payloads (device public key on the
// way in, activation data on the way out) in an ECIES envelope: an
// ephemeral P-256 key agreement, HKDF key split keyed by the application
// secret, AES-128-CBC with PKCS#7, and an encrypt-then-MAC tag.

const eciesInfoActivationLayer = "activation-layer"

var (
	ErrEnvelopeMAC     = errors.New("crypto: envelope MAC mismatch")
	ErrEnvelopePadding = errors.New("crypto: invalid envelope padding")
)

// Envelope is the wire form of one encrypted payload.
type Envelope struct {
	EphemeralPublicKey []byte
	IV                 []byte
	Ciphertext         []byte
	MAC                []byte
}

func eciesKeys(sharedSecret []byte, applicationSecret string) (encKey, macKey []byte, err error) {
	r := hkdf.New(sha256.New, sharedSecret, []byte(applicationSecret), []byte(eciesInfoActivationLayer))
	material := make([]byte, 32)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, nil, err
	}
	return material[:16], material[16:], nil
}

func pkcs7Pad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, ErrEnvelopePadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, ErrEnvelopePadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrEnvelopePadding
		}
	}
	return data[:len(data)-padLen], nil
}

// Encrypt seals a payload for the holder of recipientPublicKey.
func Encrypt(payload []byte, recipientPublicKey *ecdsa.PublicKey, applicationSecret string) (*Envelope, error) {
	ephemeral, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	shared, err := SharedSecret(ephemeral.PrivateKey, recipientPublicKey)
	if err != nil {
		return nil, err
	}
	encKey, macKey, err := eciesKeys(shared, applicationSecret)
	if err != nil {
		return nil, err
	}

	iv, err := RandomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	plaintext := pkcs7Pad(payload)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)

	return &Envelope{
		EphemeralPublicKey: PublicKeyToBytes(ephemeral.PublicKey),
		IV:                 iv,
		Ciphertext:         ciphertext,
		MAC:                mac.Sum(nil),
	}, nil
}

// Decrypt opens an envelope with the recipient's private key. The MAC is
// checked before any decryption output is interpreted.
func Decrypt(envelope *Envelope, recipientPrivateKey *ecdsa.PrivateKey, applicationSecret string) ([]byte, error) {
	ephemeralPub, err := PublicKeyFromBytes(envelope.EphemeralPublicKey)
	if err != nil {
		return nil, err
	}
	shared, err := SharedSecret(recipientPrivateKey, ephemeralPub)
	if err != nil {
		return nil, err
	}
	encKey, macKey, err := eciesKeys(shared, applicationSecret)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(envelope.IV)
	mac.Write(envelope.Ciphertext)
	if !hmac.Equal(mac.Sum(nil), envelope.MAC) {
		return nil, ErrEnvelopeMAC
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	if len(envelope.Ciphertext)%aes.BlockSize != 0 || len(envelope.IV) != aes.BlockSize {
		return nil, ErrEnvelopePadding
	}
	plaintext := make([]byte, len(envelope.Ciphertext))
	cipher.NewCBCDecrypter(block, envelope.IV).CryptBlocks(plaintext, envelope.Ciphertext)
	return pkcs7Unpad(plaintext)
}
