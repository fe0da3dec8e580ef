package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ServerPrivateKeyCodec encrypts server private keys at rest. The per-row
// secret is derived from the master key and the row identity, so a leaked
// row cannot be decrypted without both the master key and the identifiers.
//
// An empty master key selects plaintext mode for new rows; the decoder
// always honours the mode stored alongside each row, so turning encryption
// on later is additive.
type ServerPrivateKeyCodec struct {
	masterKey []byte
}

// EncryptionMode mirrors the persisted per-row mode column.
type EncryptionMode int

const (
	EncryptionModeNone    EncryptionMode = 0
	EncryptionModeAESHMAC EncryptionMode = 1
)

var (
	ErrKeyCodecCiphertext = errors.New("crypto: malformed encrypted server private key")
	ErrKeyCodecMasterKey  = errors.New("crypto: missing master DB encryption key")
)

// NewServerPrivateKeyCodec builds a codec. masterKey may be nil or empty.
func NewServerPrivateKeyCodec(masterKey []byte) *ServerPrivateKeyCodec {
	return &ServerPrivateKeyCodec{masterKey: masterKey}
}

func (c *ServerPrivateKeyCodec) rowKey(userId, activationId string) []byte {
	mac := hmac.New(sha256.New, c.masterKey)
	mac.Write([]byte(userId))
	mac.Write([]byte(activationId))
	return mac.Sum(nil)[:16]
}

// Encode converts raw private key bytes into the stored column value and
// mode. With no master key configured the key is stored as plain base64.
func (c *ServerPrivateKeyCodec) Encode(privateKey []byte, userId, activationId string) (string, EncryptionMode, error) {
	if len(c.masterKey) == 0 {
		return base64.StdEncoding.EncodeToString(privateKey), EncryptionModeNone, nil
	}

	iv, err := RandomBytes(aes.BlockSize)
	if err != nil {
		return "", 0, err
	}
	block, err := aes.NewCipher(c.rowKey(userId, activationId))
	if err != nil {
		return "", 0, err
	}
	plaintext := pkcs7Pad(privateKey)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), EncryptionModeAESHMAC, nil
}

// Decode reverses Encode according to the stored per-row mode.
func (c *ServerPrivateKeyCodec) Decode(stored string, mode EncryptionMode, userId, activationId string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, ErrKeyCodecCiphertext
	}
	if mode == EncryptionModeNone {
		return raw, nil
	}

	if len(c.masterKey) == 0 {
		return nil, ErrKeyCodecMasterKey
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, ErrKeyCodecCiphertext
	}
	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	block, err := aes.NewCipher(c.rowKey(userId, activationId))
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return nil, ErrKeyCodecCiphertext
	}
	return unpadded, nil
}
