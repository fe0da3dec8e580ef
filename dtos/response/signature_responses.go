package response

type VerifySignatureResponse struct {
	SignatureValid    bool   `json:"signatureValid"`
	ActivationId      string `json:"activationId"`
	ActivationStatus  string `json:"activationStatus"`
	BlockedReason     string `json:"blockedReason,omitempty"`
	UserId            string `json:"userId"`
	ApplicationId     uint   `json:"applicationId"`
	RemainingAttempts int64  `json:"remainingAttempts"`
}

type CreateOfflineSignaturePayloadResponse struct {
	OfflineData string `json:"offlineData"`
	Nonce       string `json:"nonce"`
}

type VaultUnlockResponse struct {
	SignatureValid    bool   `json:"signatureValid"`
	ActivationId      string `json:"activationId"`
	EncryptedVaultKey string `json:"encryptedVaultEncryptionKey,omitempty"`
}

type TokenCreateResponse struct {
	TokenId     string `json:"tokenId"`
	TokenSecret string `json:"tokenSecret"`
}

type TokenValidateResponse struct {
	TokenValid       bool   `json:"tokenValid"`
	ActivationId     string `json:"activationId,omitempty"`
	ActivationStatus string `json:"activationStatus,omitempty"`
	UserId           string `json:"userId,omitempty"`
	ApplicationId    uint   `json:"applicationId,omitempty"`
}

type TokenRemoveResponse struct {
	TokenId string `json:"tokenId"`
	Removed bool   `json:"removed"`
}
