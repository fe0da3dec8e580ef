package response

import "time"

type InitActivationResponse struct {
	ActivationId        string `json:"activationId"`
	ActivationCode      string `json:"activationCode"`
	ActivationSignature string `json:"activationSignature"`
	UserId              string `json:"userId"`
	ApplicationId       uint   `json:"applicationId"`
}

// PrepareActivationResponse is sealed in the activation-layer envelope; the
// payload inside carries the server public key and the fingerprint.
type PrepareActivationResponse struct {
	ActivationId       string `json:"activationId"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
	EncryptedData      string `json:"encryptedData"`
	Mac                string `json:"mac"`
}

// ActivationLayerResponsePayload is the plaintext inside the prepare
// response envelope.
type ActivationLayerResponsePayload struct {
	ActivationId               string                  `json:"activationId"`
	ServerPublicKey            string                  `json:"serverPublicKey"`
	DevicePublicKeyFingerprint string                  `json:"activationFingerprint"`
	ActivationRecovery         *ActivationRecoveryData `json:"activationRecovery,omitempty"`
}

// ActivationRecoveryData delivers the recovery code and PUKs generated with
// an activation. This is the only time the PUK plaintext exists outside the
// device.
type ActivationRecoveryData struct {
	RecoveryCode string   `json:"recoveryCode"`
	Puks         []string `json:"puks"`
}

type CommitActivationResponse struct {
	ActivationId string `json:"activationId"`
	Activated    bool   `json:"activated"`
}

type GetActivationStatusResponse struct {
	ActivationId               string    `json:"activationId"`
	ActivationStatus           string    `json:"activationStatus"`
	BlockedReason              string    `json:"blockedReason,omitempty"`
	ActivationName             string    `json:"activationName,omitempty"`
	UserId                     string    `json:"userId"`
	Extras                     string    `json:"extras,omitempty"`
	ApplicationId              uint      `json:"applicationId"`
	TimestampCreated           time.Time `json:"timestampCreated"`
	TimestampLastUsed          time.Time `json:"timestampLastUsed"`
	EncryptedStatusBlob        string    `json:"encryptedStatusBlob"`
	ActivationCode             string    `json:"activationCode,omitempty"`
	ActivationSignature        string    `json:"activationSignature,omitempty"`
	DevicePublicKeyFingerprint string    `json:"devicePublicKeyFingerprint,omitempty"`
	ProtocolVersion            int64     `json:"protocolVersion"`
}

type BlockActivationResponse struct {
	ActivationId     string `json:"activationId"`
	ActivationStatus string `json:"activationStatus"`
	BlockedReason    string `json:"blockedReason,omitempty"`
}

type UnblockActivationResponse struct {
	ActivationId     string `json:"activationId"`
	ActivationStatus string `json:"activationStatus"`
}

type RemoveActivationResponse struct {
	ActivationId string `json:"activationId"`
	Removed      bool   `json:"removed"`
}

type ActivationListItem struct {
	ActivationId      string    `json:"activationId"`
	ActivationStatus  string    `json:"activationStatus"`
	BlockedReason     string    `json:"blockedReason,omitempty"`
	ActivationName    string    `json:"activationName,omitempty"`
	Extras            string    `json:"extras,omitempty"`
	UserId            string    `json:"userId"`
	ApplicationId     uint      `json:"applicationId"`
	ApplicationName   string    `json:"applicationName"`
	TimestampCreated  time.Time `json:"timestampCreated"`
	TimestampLastUsed time.Time `json:"timestampLastUsed"`
}

type GetActivationListForUserResponse struct {
	UserId      string               `json:"userId"`
	Activations []ActivationListItem `json:"activations"`
}
