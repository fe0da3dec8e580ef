package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerPrivateKeyCodecPlaintextMode(t *testing.T) {
	codec := NewServerPrivateKeyCodec(nil)
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	stored, mode, err := codec.Encode(raw, "alice", "activation-1")
	require.NoError(t, err)
	assert.Equal(t, EncryptionModeNone, mode)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), stored)

	decoded, err := codec.Decode(stored, mode, "alice", "activation-1")
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestServerPrivateKeyCodecAESRoundTrip(t *testing.T) {
	masterKey, err := RandomBytes(32)
	require.NoError(t, err)
	codec := NewServerPrivateKeyCodec(masterKey)

	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	stored, mode, err := codec.Encode(raw, "alice", "activation-1")
	require.NoError(t, err)
	assert.Equal(t, EncryptionModeAESHMAC, mode)
	assert.NotEqual(t, base64.StdEncoding.EncodeToString(raw), stored)

	decoded, err := codec.Decode(stored, mode, "alice", "activation-1")
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestServerPrivateKeyCodecWrongMasterKeyFails(t *testing.T) {
	masterKey, err := RandomBytes(32)
	require.NoError(t, err)
	wrongKey, err := RandomBytes(32)
	require.NoError(t, err)

	codec := NewServerPrivateKeyCodec(masterKey)
	wrongCodec := NewServerPrivateKeyCodec(wrongKey)

	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	stored, mode, err := codec.Encode(raw, "alice", "activation-1")
	require.NoError(t, err)

	decoded, err := wrongCodec.Decode(stored, mode, "alice", "activation-1")
	if err == nil {
		assert.False(t, bytes.Equal(raw, decoded))
	}
}

func TestServerPrivateKeyCodecRowIdentityBindsKey(t *testing.T) {
	masterKey, err := RandomBytes(32)
	require.NoError(t, err)
	codec := NewServerPrivateKeyCodec(masterKey)

	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	stored, mode, err := codec.Encode(raw, "alice", "activation-1")
	require.NoError(t, err)

	// Another row identity derives a different per-row secret.
	decoded, err := codec.Decode(stored, mode, "bob", "activation-2")
	if err == nil {
		assert.False(t, bytes.Equal(raw, decoded))
	}
}

func TestServerPrivateKeyCodecDecodesBothModesPerRow(t *testing.T) {
	masterKey, err := RandomBytes(32)
	require.NoError(t, err)
	codec := NewServerPrivateKeyCodec(masterKey)

	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	// A row written before encryption was enabled decodes fine with a
	// configured master key; the stored mode wins.
	plain := base64.StdEncoding.EncodeToString(raw)
	decoded, err := codec.Decode(plain, EncryptionModeNone, "alice", "activation-1")
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestServerPrivateKeyCodecEncryptedRowNeedsMasterKey(t *testing.T) {
	masterKey, err := RandomBytes(32)
	require.NoError(t, err)
	codec := NewServerPrivateKeyCodec(masterKey)
	bare := NewServerPrivateKeyCodec(nil)

	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	raw := PrivateKeyToBytes(keyPair.PrivateKey)

	stored, mode, err := codec.Encode(raw, "alice", "activation-1")
	require.NoError(t, err)

	_, err = bare.Decode(stored, mode, "alice", "activation-1")
	assert.ErrorIs(t, err, ErrKeyCodecMasterKey)
}
