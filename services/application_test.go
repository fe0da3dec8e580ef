package services

import (
	"testing"

	"activation_server/dtos/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplicationService(env *testEnv) IApplicationService {
	return NewApplicationService(nil, noopTxRunner, env.apps, nil, env.clock)
}

func TestCreateApplicationProvisionsVersionAndKeyPair(t *testing.T) {
	env := newTestEnv(t)
	svc := newApplicationService(env)

	resp, err := svc.CreateApplication(&request.CreateApplicationRequest{ApplicationName: "mobile-banking"})
	require.NoError(t, err)
	assert.Equal(t, "mobile-banking", resp.ApplicationName)

	detail, err := svc.GetApplicationDetail(resp.ApplicationId)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.MasterPublicKey)
	require.Len(t, detail.Versions, 1)
	assert.True(t, detail.Versions[0].Supported)
	assert.NotEmpty(t, detail.Versions[0].ApplicationKey)
	assert.NotEmpty(t, detail.Versions[0].ApplicationSecret)

	// The fresh application can init activations right away.
	_, err = env.activationSvc.InitActivation(&request.InitActivationRequest{
		ApplicationId: resp.ApplicationId,
		UserId:        "alice",
	})
	assert.NoError(t, err)
}

func TestApplicationVersionSupportToggle(t *testing.T) {
	env := newTestEnv(t)
	svc := newApplicationService(env)

	created, err := svc.CreateApplicationVersion(&request.CreateApplicationVersionRequest{
		ApplicationId:          env.applicationId,
		ApplicationVersionName: "v2",
	})
	require.NoError(t, err)
	assert.True(t, created.Supported)

	toggled, err := svc.UnsupportApplicationVersion(created.ApplicationVersionId)
	require.NoError(t, err)
	assert.False(t, toggled.Supported)

	toggled, err = svc.SupportApplicationVersion(created.ApplicationVersionId)
	require.NoError(t, err)
	assert.True(t, toggled.Supported)
}

func TestApplicationList(t *testing.T) {
	env := newTestEnv(t)
	svc := newApplicationService(env)

	listResp, err := svc.GetApplicationList()
	require.NoError(t, err)
	require.Len(t, listResp.Applications, 1)
	assert.Equal(t, "test-app", listResp.Applications[0].ApplicationName)
}

func TestSystemStatusAndErrorList(t *testing.T) {
	env := newTestEnv(t)
	system := NewSystemService(env.clock)

	status := system.GetSystemStatus()
	assert.Equal(t, "OK", status.Status)
	assert.Equal(t, env.clock.Now(), status.Timestamp)

	errorList := system.GetErrorCodeList()
	assert.NotEmpty(t, errorList.Errors)
	codes := make(map[string]bool)
	for _, entry := range errorList.Errors {
		codes[entry.Code] = true
	}
	assert.True(t, codes["ERR_ACTIVATION_NOT_FOUND"])
	assert.True(t, codes["ERR_CONCURRENCY"])
}
