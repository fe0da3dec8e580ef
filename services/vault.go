package services

import (
	"encoding/base64"

	"activation_server/crypto"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/serviceerror"
)

// IVaultService serves vault unlock: a signed request that returns the
// device-side vault encryption key, sealed under the transport key.
type IVaultService interface {
	VaultUnlock(req *request.VaultUnlockRequest) (*response.VaultUnlockResponse, error)
}

type VaultService struct {
	signatures  ISignatureService
	activations *ActivationService
}

func NewVaultService(signatures ISignatureService, activations *ActivationService) IVaultService {
	return &VaultService{signatures: signatures, activations: activations}
}

// VaultUnlock verifies the request signature like any other signed request;
// only a valid signature reveals the vault key ciphertext. An invalid
// signature still burns a failed attempt on the activation.
func (s *VaultService) VaultUnlock(req *request.VaultUnlockRequest) (*response.VaultUnlockResponse, error) {
	verifyResp, err := s.signatures.VerifySignature(&request.VerifySignatureRequest{
		ActivationId:    req.ActivationId,
		ApplicationKey:  req.ApplicationKey,
		Data:            req.SignedData,
		Signature:       req.Signature,
		SignatureType:   req.SignatureType,
		ProtocolVersion: req.ProtocolVersion,
	})
	if err != nil {
		return nil, err
	}
	if !verifyResp.SignatureValid {
		return &response.VaultUnlockResponse{
			SignatureValid: false,
			ActivationId:   req.ActivationId,
		}, nil
	}

	activation, err := s.activations.activations.FindActivation(s.activations.db, req.ActivationId)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeActivationNotFound)
	}

	transportKey, _, _, err := s.activations.deriveTransportKey(activation)
	if err != nil {
		return nil, err
	}
	serverPrivateKeyBytes, err := s.activations.keyCodec.Decode(
		activation.ServerPrivateKeyBase64,
		crypto.EncryptionMode(activation.ServerPrivateKeyEncryption),
		activation.UserId, activation.ActivationId)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	serverPrivateKey, err := crypto.PrivateKeyFromBytes(serverPrivateKeyBytes)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	devicePublicKeyBytes, err := base64.StdEncoding.DecodeString(activation.DevicePublicKeyBase64)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	devicePublicKey, err := crypto.PublicKeyFromBytes(devicePublicKeyBytes)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	masterSecret, err := crypto.SharedSecret(serverPrivateKey, devicePublicKey)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	vaultKey, err := crypto.DeriveKey(masterSecret, crypto.KeyDomainVault)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	// The vault key travels AES-wrapped under the transport key; only the
	// device that completed the key agreement can unwrap it.
	encryptedVaultKey, err := crypto.WrapKey(vaultKey, transportKey)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	return &response.VaultUnlockResponse{
		SignatureValid:    true,
		ActivationId:      activation.ActivationId,
		EncryptedVaultKey: base64.StdEncoding.EncodeToString(encryptedVaultKey),
	}, nil
}
