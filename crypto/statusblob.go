package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// StatusBlob is the 16-byte state summary delivered to the device on a
// status query. The device decrypts it under the transport key; anyone else
// sees ciphertext indistinguishable from random.
type StatusBlob struct {
	Status            byte
	CurrentVersion    byte
	UpgradeVersion    byte
	FailedAttempts    byte
	MaxFailedAttempts byte
	CtrDistance       byte
}

const statusBlobLength = 16

var ErrInvalidStatusBlob = errors.New("crypto: invalid status blob length")

// statusBlobIV derives the CBC IV from the transport key and the activation
// counter, so both sides agree on it without transmitting it.
func statusBlobIV(transportKey []byte, counter int64) []byte {
	mac := hmac.New(sha256.New, transportKey)
	mac.Write([]byte("status-blob-iv"))
	ctr := make([]byte, 8)
	binary.BigEndian.PutUint64(ctr, uint64(counter))
	mac.Write(ctr)
	return mac.Sum(nil)[:aes.BlockSize]
}

// EncryptStatusBlob encodes and encrypts the blob as a single AES-128-CBC
// block under the transport key. The trailing ten bytes are random padding.
func EncryptStatusBlob(blob *StatusBlob, transportKey []byte, counter int64) ([]byte, error) {
	padding, err := RandomBytes(10)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, statusBlobLength)
	plaintext[0] = blob.Status
	plaintext[1] = blob.CurrentVersion
	plaintext[2] = blob.UpgradeVersion
	plaintext[3] = blob.FailedAttempts
	plaintext[4] = blob.MaxFailedAttempts
	plaintext[5] = blob.CtrDistance
	copy(plaintext[6:], padding)

	block, err := aes.NewCipher(transportKey[:16])
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, statusBlobLength)
	cipher.NewCBCEncrypter(block, statusBlobIV(transportKey, counter)).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

// DecryptStatusBlob reverses EncryptStatusBlob.
func DecryptStatusBlob(ciphertext, transportKey []byte, counter int64) (*StatusBlob, error) {
	if len(ciphertext) != statusBlobLength {
		return nil, ErrInvalidStatusBlob
	}
	block, err := aes.NewCipher(transportKey[:16])
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, statusBlobLength)
	cipher.NewCBCDecrypter(block, statusBlobIV(transportKey, counter)).CryptBlocks(plaintext, ciphertext)
	return &StatusBlob{
		Status:            plaintext[0],
		CurrentVersion:    plaintext[1],
		UpgradeVersion:    plaintext[2],
		FailedAttempts:    plaintext[3],
		MaxFailedAttempts: plaintext[4],
		CtrDistance:       plaintext[5],
	}, nil
}

// RandomStatusBlob returns an unkeyed random blob. Returned for unknown or
// keyless activations so their responses cannot be told apart from real
// ones.
func RandomStatusBlob() ([]byte, error) {
	return RandomBytes(statusBlobLength)
}
