package crypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// WrapKey encrypts key material under a wrapping key with AES-128-CBC and a
// fresh IV prepended to the ciphertext.
func WrapKey(key, wrappingKey []byte) ([]byte, error) {
	iv, err := RandomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(wrappingKey[:16])
	if err != nil {
		return nil, err
	}
	plaintext := pkcs7Pad(key)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return append(iv, ciphertext...), nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(wrapped, wrappingKey []byte) ([]byte, error) {
	if len(wrapped) < 2*aes.BlockSize || len(wrapped)%aes.BlockSize != 0 {
		return nil, ErrEnvelopePadding
	}
	block, err := aes.NewCipher(wrappingKey[:16])
	if err != nil {
		return nil, err
	}
	iv, ciphertext := wrapped[:aes.BlockSize], wrapped[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}
