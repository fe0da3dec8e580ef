package services

import (
	"encoding/base64"
	"testing"

	"activation_server/crypto"
	"activation_server/dtos/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultUnlock(t *testing.T) {
	env := newTestEnv(t)
	device := newDeviceSession(t)
	activationId := device.activate(t, env, "alice")
	vault := NewVaultService(env.signatureSvc, env.activationSvc)

	keys := device.signatureKeys(t, env, activationId)
	factorKeys, err := crypto.SignaturePossessionKnowledge.FactorKeys(keys)
	require.NoError(t, err)
	signature := crypto.ComputeSignature(factorKeys, 0, []byte("vault-unlock"), env.applicationSecret)

	resp, err := vault.VaultUnlock(&request.VaultUnlockRequest{
		ActivationId:   activationId,
		ApplicationKey: env.applicationKey,
		SignedData:     "vault-unlock",
		Signature:      signature,
		SignatureType:  "possession_knowledge",
		Reason:         "secure storage access",
	})
	require.NoError(t, err)
	require.True(t, resp.SignatureValid)
	require.NotEmpty(t, resp.EncryptedVaultKey)

	// The device unwraps the vault key under its own transport key.
	record, err := env.activations.FindActivation(nil, activationId)
	require.NoError(t, err)
	serverPubBytes, err := base64.StdEncoding.DecodeString(record.ServerPublicKeyBase64)
	require.NoError(t, err)
	serverPub, err := crypto.PublicKeyFromBytes(serverPubBytes)
	require.NoError(t, err)
	masterSecret, err := crypto.SharedSecret(device.keyPair.PrivateKey, serverPub)
	require.NoError(t, err)
	transportKey, err := crypto.DeriveKey(masterSecret, crypto.KeyDomainTransport)
	require.NoError(t, err)
	expectedVaultKey, err := crypto.DeriveKey(masterSecret, crypto.KeyDomainVault)
	require.NoError(t, err)

	wrapped, err := base64.StdEncoding.DecodeString(resp.EncryptedVaultKey)
	require.NoError(t, err)
	vaultKey, err := crypto.UnwrapKey(wrapped, transportKey)
	require.NoError(t, err)
	assert.Equal(t, expectedVaultKey, vaultKey)
}

func TestVaultUnlockInvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	device := newDeviceSession(t)
	activationId := device.activate(t, env, "alice")
	vault := NewVaultService(env.signatureSvc, env.activationSvc)

	resp, err := vault.VaultUnlock(&request.VaultUnlockRequest{
		ActivationId:   activationId,
		ApplicationKey: env.applicationKey,
		SignedData:     "vault-unlock",
		Signature:      "00000000-00000000",
		SignatureType:  "possession_knowledge",
	})
	require.NoError(t, err)
	assert.False(t, resp.SignatureValid)
	assert.Empty(t, resp.EncryptedVaultKey)

	// The failed unlock burned an attempt like any bad signature.
	record, err := env.activations.FindActivation(nil, activationId)
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.FailedAttempts)
}
