package services

import (
	"testing"

	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/serviceerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRecoveryCode(t *testing.T, env *testEnv, userId string) ([]string, string) {
	t.Helper()
	resp, err := env.recoverySvc.CreateRecoveryCode(&request.CreateRecoveryCodeRequest{
		ApplicationId: env.applicationId,
		UserId:        userId,
		PukCount:      3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Puks, 3)
	return resp.Puks, resp.RecoveryCode
}

func TestCreateRecoveryCode(t *testing.T) {
	env := newTestEnv(t)

	puks, code := createRecoveryCode(t, env, "alice")
	assert.NotEmpty(t, code)
	for _, puk := range puks {
		assert.Len(t, puk, 10)
	}

	// Only digests are stored.
	stored, err := env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoveryCodeActive, stored.Status)
	for i, puk := range stored.Puks {
		assert.Equal(t, domain.RecoveryPukValid, puk.Status)
		assert.NotContains(t, puk.PukHash, puks[i])
	}
}

func TestCreateRecoveryCodeRejectsSecondCode(t *testing.T) {
	env := newTestEnv(t)
	createRecoveryCode(t, env, "alice")

	_, err := env.recoverySvc.CreateRecoveryCode(&request.CreateRecoveryCodeRequest{
		ApplicationId: env.applicationId,
		UserId:        "alice",
	})
	svcErr, ok := serviceerror.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, serviceerror.CodeRecoveryCodeAlreadyExists, svcErr.Code)
}

func TestRecoveryCodeActivationConsumesPuksInOrder(t *testing.T) {
	env := newTestEnv(t)
	puks, code := createRecoveryCode(t, env, "alice")

	// P1 redeems and yields a fresh activation for alice.
	resp, err := env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
		RecoveryCode:   code,
		Puk:            puks[0],
		ApplicationKey: env.applicationKey,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.UserId)
	assert.NotEmpty(t, resp.ActivationId)
	assert.NotEmpty(t, resp.ActivationCode)

	record, err := env.activations.FindActivation(nil, resp.ActivationId)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationCreated, record.ActivationStatus)

	// P1 cannot be replayed; the current PUK is now index 2.
	_, err = env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
		RecoveryCode:   code,
		Puk:            puks[0],
		ApplicationKey: env.applicationKey,
	})
	recoveryErr, ok := serviceerror.AsRecoveryError(err)
	require.True(t, ok)
	assert.EqualValues(t, 2, recoveryErr.CurrentRecoveryPukIndex)

	// P2 redeems next, leaving only P3 valid.
	_, err = env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
		RecoveryCode:   code,
		Puk:            puks[1],
		ApplicationKey: env.applicationKey,
	})
	require.NoError(t, err)

	stored, err := env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoveryPukUsed, stored.Puks[0].Status)
	assert.Equal(t, domain.RecoveryPukUsed, stored.Puks[1].Status)
	assert.Equal(t, domain.RecoveryPukValid, stored.Puks[2].Status)
}

func TestRecoveryCodeBlocksOnThreshold(t *testing.T) {
	env := newTestEnv(t)
	puks, code := createRecoveryCode(t, env, "alice")

	for i := 0; i < 5; i++ {
		_, err := env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
			RecoveryCode:   code,
			Puk:            "9999999999",
			ApplicationKey: env.applicationKey,
		})
		recoveryErr, ok := serviceerror.AsRecoveryError(err)
		if ok {
			// Every failure reports the current PUK index.
			assert.EqualValues(t, 1, recoveryErr.CurrentRecoveryPukIndex)
			continue
		}
		// After blocking, the error loses the PUK index.
		svcErr, ok := serviceerror.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, serviceerror.CodeInvalidRecoveryCode, svcErr.Code)
	}

	stored, err := env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoveryCodeBlocked, stored.Status)

	// Even the right PUK is refused on a blocked code.
	_, err = env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
		RecoveryCode:   code,
		Puk:            puks[0],
		ApplicationKey: env.applicationKey,
	})
	svcErr, ok := serviceerror.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, serviceerror.CodeInvalidRecoveryCode, svcErr.Code)
}

func TestRecoveryCodeRevokedAfterLastPuk(t *testing.T) {
	env := newTestEnv(t)
	puks, code := createRecoveryCode(t, env, "alice")

	for _, puk := range puks {
		_, err := env.recoverySvc.RecoveryCodeActivation(&request.RecoveryCodeActivationRequest{
			RecoveryCode:   code,
			Puk:            puk,
			ApplicationKey: env.applicationKey,
		})
		require.NoError(t, err)
	}

	stored, err := env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoveryCodeRevoked, stored.Status)
}

func TestRevokeRecoveryCodes(t *testing.T) {
	env := newTestEnv(t)
	_, code := createRecoveryCode(t, env, "alice")

	stored, err := env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)

	_, err = env.recoverySvc.RevokeRecoveryCodes(&request.RevokeRecoveryCodesRequest{RecoveryCodeIds: []uint{stored.Id}})
	require.NoError(t, err)

	stored, err = env.recovery.FindCodeByValue(nil, env.applicationId, code)
	require.NoError(t, err)
	assert.Equal(t, domain.RecoveryCodeRevoked, stored.Status)
	for _, puk := range stored.Puks {
		assert.Equal(t, domain.RecoveryPukInvalid, puk.Status)
	}
}

func TestLookupRecoveryCodes(t *testing.T) {
	env := newTestEnv(t)
	_, code := createRecoveryCode(t, env, "alice")

	resp, err := env.recoverySvc.LookupRecoveryCodes(&request.LookupRecoveryCodesRequest{
		ApplicationId: env.applicationId,
		UserId:        "alice",
	})
	require.NoError(t, err)
	require.Len(t, resp.RecoveryCodes, 1)
	assert.Equal(t, code, resp.RecoveryCodes[0].RecoveryCode)
	assert.Len(t, resp.RecoveryCodes[0].Puks, 3)
}

func TestRecoveryConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	cfg, err := env.recoverySvc.GetRecoveryConfig(env.applicationId)
	require.NoError(t, err)
	assert.False(t, cfg.ActivationRecoveryEnabled)

	_, err = env.recoverySvc.UpdateRecoveryConfig(&request.UpdateRecoveryConfigRequest{
		ApplicationId:             env.applicationId,
		ActivationRecoveryEnabled: true,
	})
	require.NoError(t, err)

	cfg, err = env.recoverySvc.GetRecoveryConfig(env.applicationId)
	require.NoError(t, err)
	assert.True(t, cfg.ActivationRecoveryEnabled)
}

func TestPrepareIssuesRecoveryDataWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.activationSvc.SetRecoveryIssuer(env.recoverySvc)

	_, err := env.recoverySvc.UpdateRecoveryConfig(&request.UpdateRecoveryConfigRequest{
		ApplicationId:             env.applicationId,
		ActivationRecoveryEnabled: true,
	})
	require.NoError(t, err)

	device := newDeviceSession(t)
	initResp, err := env.activationSvc.InitActivation(&request.InitActivationRequest{
		ApplicationId: env.applicationId,
		UserId:        "alice",
	})
	require.NoError(t, err)

	_, err = env.activationSvc.PrepareActivation(device.prepareRequest(t, env, initResp.ActivationCode))
	require.NoError(t, err)

	// A recovery code in CREATED state now hangs off the activation.
	codes, err := env.recovery.FindCodesByActivation(nil, initResp.ActivationId)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, domain.RecoveryCodeCreated, codes[0].Status)

	// Confirming flips it ACTIVE; confirming again reports as much.
	confirmResp, err := env.recoverySvc.ConfirmRecoveryCode(&request.ConfirmRecoveryCodeRequest{
		ActivationId: initResp.ActivationId,
		RecoveryCode: codes[0].RecoveryCode,
	})
	require.NoError(t, err)
	assert.False(t, confirmResp.AlreadyConfirmed)

	confirmResp, err = env.recoverySvc.ConfirmRecoveryCode(&request.ConfirmRecoveryCodeRequest{
		ActivationId: initResp.ActivationId,
		RecoveryCode: codes[0].RecoveryCode,
	})
	require.NoError(t, err)
	assert.True(t, confirmResp.AlreadyConfirmed)
}
