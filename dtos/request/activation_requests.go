package request

import "time"

type InitActivationRequest struct {
	ApplicationId             uint       `json:"applicationId" validate:"required"`
	UserId                    string     `json:"userId" validate:"required"`
	MaxFailedAttempts         *int64     `json:"maxFailedAttempts,omitempty" validate:"omitempty,gt=0"`
	TimestampActivationExpire *time.Time `json:"timestampActivationExpire,omitempty"`
}

// PrepareActivationRequest carries the device half of the key exchange,
// sealed in the activation-layer envelope. All binary fields are base64.
type PrepareActivationRequest struct {
	ActivationCode     string `json:"activationCode" validate:"required"`
	ApplicationKey     string `json:"applicationKey" validate:"required"`
	ActivationName     string `json:"activationName"`
	Extras             string `json:"extras"`
	EphemeralPublicKey string `json:"ephemeralPublicKey" validate:"required"`
	EncryptedData      string `json:"encryptedData" validate:"required"`
	Mac                string `json:"mac" validate:"required"`
	Nonce              string `json:"nonce"`
	ProtocolVersion    int64  `json:"protocolVersion"`
}

// CreateActivationRequest performs Init and Prepare in one call, for flows
// where the server never shows an activation code to the user.
type CreateActivationRequest struct {
	UserId                    string     `json:"userId" validate:"required"`
	ApplicationKey            string     `json:"applicationKey" validate:"required"`
	MaxFailedAttempts         *int64     `json:"maxFailedAttempts,omitempty" validate:"omitempty,gt=0"`
	TimestampActivationExpire *time.Time `json:"timestampActivationExpire,omitempty"`
	ActivationName            string     `json:"activationName"`
	Extras                    string     `json:"extras"`
	EphemeralPublicKey        string     `json:"ephemeralPublicKey" validate:"required"`
	EncryptedData             string     `json:"encryptedData" validate:"required"`
	Mac                       string     `json:"mac" validate:"required"`
	ProtocolVersion           int64      `json:"protocolVersion"`
}

type CommitActivationRequest struct {
	ActivationId string `json:"activationId" validate:"required"`
}

type GetActivationStatusRequest struct {
	ActivationId string `json:"activationId" validate:"required"`
}

type BlockActivationRequest struct {
	ActivationId string `json:"activationId" validate:"required"`
	Reason       string `json:"reason"`
}

type UnblockActivationRequest struct {
	ActivationId string `json:"activationId" validate:"required"`
}

type RemoveActivationRequest struct {
	ActivationId string `json:"activationId" validate:"required"`
}

type GetActivationListForUserRequest struct {
	UserId        string `json:"userId" validate:"required"`
	ApplicationId uint   `json:"applicationId"`
}
