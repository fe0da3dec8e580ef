package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)
	payload := []byte(`{"devicePublicKey":"..."}`)

	envelope, err := Encrypt(payload, recipient.PublicKey, "app-secret")
	require.NoError(t, err)

	decrypted, err := Decrypt(envelope, recipient.PrivateKey, "app-secret")
	require.NoError(t, err)
	assert.Equal(t, payload, decrypted)
}

func TestEnvelopeMACTamperDetected(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	envelope, err := Encrypt([]byte("payload"), recipient.PublicKey, "app-secret")
	require.NoError(t, err)

	envelope.Ciphertext[0] ^= 0xFF
	_, err = Decrypt(envelope, recipient.PrivateKey, "app-secret")
	assert.ErrorIs(t, err, ErrEnvelopeMAC)
}

func TestEnvelopeApplicationSecretBindsKeys(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	envelope, err := Encrypt([]byte("payload"), recipient.PublicKey, "app-secret")
	require.NoError(t, err)

	// The wrong application secret derives a different MAC key.
	_, err = Decrypt(envelope, recipient.PrivateKey, "other-secret")
	assert.ErrorIs(t, err, ErrEnvelopeMAC)
}

func TestEnvelopeWrongRecipientFails(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	envelope, err := Encrypt([]byte("payload"), recipient.PublicKey, "app-secret")
	require.NoError(t, err)

	_, err = Decrypt(envelope, other.PrivateKey, "app-secret")
	assert.Error(t, err)
}

func TestSharedSecretSymmetry(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	fromAlice, err := SharedSecret(alice.PrivateKey, bob.PublicKey)
	require.NoError(t, err)
	fromBob, err := SharedSecret(bob.PrivateKey, alice.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, fromAlice, fromBob)
	assert.Len(t, fromAlice, 32)
}

func TestKeySerializationRoundTrip(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)

	pubBytes := PublicKeyToBytes(keyPair.PublicKey)
	pub, err := PublicKeyFromBytes(pubBytes)
	require.NoError(t, err)
	assert.Equal(t, 0, keyPair.PublicKey.X.Cmp(pub.X))
	assert.Equal(t, 0, keyPair.PublicKey.Y.Cmp(pub.Y))

	privBytes := PrivateKeyToBytes(keyPair.PrivateKey)
	assert.Len(t, privBytes, 32)
	priv, err := PrivateKeyFromBytes(privBytes)
	require.NoError(t, err)
	assert.Equal(t, 0, keyPair.PrivateKey.D.Cmp(priv.D))
}

func TestPublicKeyFromBytesRejectsGarbage(t *testing.T) {
	_, err := PublicKeyFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	garbage := make([]byte, 65)
	garbage[0] = 0x04
	_, err = PublicKeyFromBytes(garbage)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestWrapKeyRoundTrip(t *testing.T) {
	wrappingKey, err := RandomBytes(32)
	require.NoError(t, err)
	key, err := RandomBytes(32)
	require.NoError(t, err)

	wrapped, err := WrapKey(key, wrappingKey)
	require.NoError(t, err)
	unwrapped, err := UnwrapKey(wrapped, wrappingKey)
	require.NoError(t, err)
	assert.Equal(t, key, unwrapped)
}
