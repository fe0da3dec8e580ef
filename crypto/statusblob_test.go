package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransportKey(t *testing.T) []byte {
	t.Helper()
	key, err := RandomBytes(32)
	require.NoError(t, err)
	return key
}

func TestStatusBlobRoundTrip(t *testing.T) {
	key := testTransportKey(t)
	blob := &StatusBlob{
		Status:            3,
		CurrentVersion:    3,
		UpgradeVersion:    3,
		FailedAttempts:    1,
		MaxFailedAttempts: 5,
		CtrDistance:       0,
	}

	ciphertext, err := EncryptStatusBlob(blob, key, 7)
	require.NoError(t, err)
	assert.Len(t, ciphertext, 16)

	decrypted, err := DecryptStatusBlob(ciphertext, key, 7)
	require.NoError(t, err)
	assert.Equal(t, blob, decrypted)
}

func TestStatusBlobCounterBindsIV(t *testing.T) {
	key := testTransportKey(t)
	blob := &StatusBlob{Status: 3, CurrentVersion: 3, UpgradeVersion: 3, MaxFailedAttempts: 5}

	ciphertext, err := EncryptStatusBlob(blob, key, 1)
	require.NoError(t, err)

	// Decrypting under a different counter derives a different IV; the
	// decoded fields cannot all come back intact.
	decrypted, err := DecryptStatusBlob(ciphertext, key, 2)
	require.NoError(t, err)
	assert.NotEqual(t, blob, decrypted)
}

func TestStatusBlobRandomPaddingChangesCiphertext(t *testing.T) {
	key := testTransportKey(t)
	blob := &StatusBlob{Status: 3, MaxFailedAttempts: 5}

	first, err := EncryptStatusBlob(blob, key, 0)
	require.NoError(t, err)
	second, err := EncryptStatusBlob(blob, key, 0)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRandomStatusBlobDiffers(t *testing.T) {
	first, err := RandomStatusBlob()
	require.NoError(t, err)
	second, err := RandomStatusBlob()
	require.NoError(t, err)
	assert.Len(t, first, 16)
	assert.NotEqual(t, first, second)
}

func TestDecryptStatusBlobRejectsBadLength(t *testing.T) {
	key := testTransportKey(t)
	_, err := DecryptStatusBlob([]byte{1, 2, 3}, key, 0)
	assert.ErrorIs(t, err, ErrInvalidStatusBlob)
}
