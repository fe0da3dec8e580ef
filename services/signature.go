package services

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"activation_server/config"
	"activation_server/crypto"
	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"
	"activation_server/serviceerror"

	"gorm.io/gorm"
)

// SignatureConfig carries the verifier tunables.
type SignatureConfig struct {
	ValidationLookahead int64
}

// SignatureConfigFromGlobal reads the verifier tunables from the loaded
// configuration.
func SignatureConfigFromGlobal() SignatureConfig {
	return SignatureConfig{
		ValidationLookahead: config.Conf.Application.Crypto.SignatureValidationLookahead,
	}
}

type ISignatureService interface {
	VerifySignature(req *request.VerifySignatureRequest) (*response.VerifySignatureResponse, error)
	VerifyOfflineSignature(req *request.VerifyOfflineSignatureRequest) (*response.VerifySignatureResponse, error)
	CreatePersonalizedOfflineSignaturePayload(req *request.CreatePersonalizedOfflineSignaturePayloadRequest) (*response.CreateOfflineSignaturePayloadResponse, error)
	CreateNonPersonalizedOfflineSignaturePayload(req *request.CreateNonPersonalizedOfflineSignaturePayloadRequest) (*response.CreateOfflineSignaturePayloadResponse, error)
}

type SignatureService struct {
	db           *gorm.DB
	runTx        TxRunner
	activations  repository.IActivationRepository
	applications repository.IApplicationRepository
	audit        IAuditService
	callbacks    ICallbackService
	redis        IRedisService
	keyCodec     *crypto.ServerPrivateKeyCodec
	clock        Clock
	cfg          SignatureConfig
}

func NewSignatureService(
	db *gorm.DB,
	runTx TxRunner,
	activations repository.IActivationRepository,
	applications repository.IApplicationRepository,
	audit IAuditService,
	callbacks ICallbackService,
	redis IRedisService,
	keyCodec *crypto.ServerPrivateKeyCodec,
	clock Clock,
	cfg SignatureConfig,
) ISignatureService {
	return &SignatureService{
		db:           db,
		runTx:        runTx,
		activations:  activations,
		applications: applications,
		audit:        audit,
		callbacks:    callbacks,
		redis:        redis,
		keyCodec:     keyCodec,
		clock:        clock,
		cfg:          cfg,
	}
}

func dataHash(data []byte) string {
	digest := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(digest[:])
}

func (s *SignatureService) VerifySignature(req *request.VerifySignatureRequest) (*response.VerifySignatureResponse, error) {
	return s.verify(req.ActivationId, req.ApplicationKey, []byte(req.Data), req.Signature, req.SignatureType, req.ProtocolVersion, false)
}

// VerifyOfflineSignature validates a signature computed against an offline
// payload. Biometry is not an acceptable factor offline.
func (s *SignatureService) VerifyOfflineSignature(req *request.VerifyOfflineSignatureRequest) (*response.VerifySignatureResponse, error) {
	return s.verify(req.ActivationId, "", []byte(req.Data), req.Signature, req.SignatureType, 0, true)
}

func (s *SignatureService) verify(activationId, applicationKey string, data []byte, signature, signatureType string, reqVersion int64, offline bool) (*response.VerifySignatureResponse, error) {
	sigType, err := crypto.ParseSignatureType(signatureType)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	if offline && (sigType == crypto.SignatureBiometry || sigType == crypto.SignaturePossessionBiometry || sigType == crypto.SignaturePossessionKnowledgeBiometry) {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}

	var resp *response.VerifySignatureResponse
	var notices []ActivationChangeEvent
	err = s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()

		activation, err := s.activations.FindActivationForUpdate(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				resp = &response.VerifySignatureResponse{
					SignatureValid:   false,
					ActivationId:     activationId,
					ActivationStatus: domain.ActivationRemoved.String(),
				}
				return nil
			}
			return err
		}

		expired, err := s.deactivateExpired(tx, activation, now)
		if err != nil {
			return err
		}
		if expired {
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}

		// Only an ACTIVE activation verifies anything. Everything else
		// audits an invalid attempt and leaves the counter alone.
		if activation.ActivationStatus != domain.ActivationActive {
			if activation.ActivationStatus == domain.ActivationBlocked {
				activation.TimestampLastUsed = &now
				if err := s.activations.Update(tx, activation); err != nil {
					return err
				}
			}
			if err := s.logAttempt(tx, activation, signatureType, signature, data, false, "activation_state_"+activation.ActivationStatus.String()); err != nil {
				return err
			}
			resp = s.invalidResponse(activation)
			return nil
		}

		// Resolve client credentials; a foreign or unsupported application
		// key rejects without touching the counter.
		applicationSecret := ""
		if !offline {
			version, err := lookupApplicationVersion(tx, s.redis, s.applications, applicationKey)
			if err != nil {
				return err
			}
			if version.ApplicationId != activation.ApplicationId || !version.Supported {
				if err := s.logAttempt(tx, activation, signatureType, signature, data, false, "application_key_mismatch"); err != nil {
					return err
				}
				resp = s.invalidResponse(activation)
				return nil
			}
			applicationSecret = version.ApplicationSecret
		}

		factorKeys, err := s.factorKeys(activation, sigType)
		if err != nil {
			return err
		}

		// Slide the lookahead window over the counter.
		matched := int64(-1)
		for i := int64(0); i <= s.cfg.ValidationLookahead; i++ {
			if crypto.VerifySignature(factorKeys, activation.Counter+i, data, applicationSecret, signature) {
				matched = i
				break
			}
		}

		if matched >= 0 {
			activation.Counter += matched + 1
			activation.FailedAttempts = 0
			activation.TimestampLastUsed = &now
			if reqVersion > 0 {
				if activation.Version == nil || *activation.Version < reqVersion {
					v := reqVersion
					activation.Version = &v
				}
			}
			if err := s.activations.Update(tx, activation); err != nil {
				return err
			}
			if err := s.logAttempt(tx, activation, signatureType, signature, data, true, ""); err != nil {
				return err
			}
			resp = &response.VerifySignatureResponse{
				SignatureValid:    true,
				ActivationId:      activation.ActivationId,
				ActivationStatus:  activation.ActivationStatus.String(),
				UserId:            activation.UserId,
				ApplicationId:     activation.ApplicationId,
				RemainingAttempts: activation.MaxFailedAttempts,
			}
			return nil
		}

		activation.FailedAttempts++
		activation.TimestampLastUsed = &now
		if activation.FailedAttempts >= activation.MaxFailedAttempts {
			activation.ActivationStatus = domain.ActivationBlocked
			activation.BlockedReason = domain.BlockedReasonMaxFailedAttempts
		}
		if err := s.activations.Update(tx, activation); err != nil {
			return err
		}
		if activation.ActivationStatus == domain.ActivationBlocked {
			if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
				return err
			}
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}
		if err := s.logAttempt(tx, activation, signatureType, signature, data, false, "signature_mismatch"); err != nil {
			return err
		}
		resp = s.invalidResponse(activation)
		return nil
	})
	for _, event := range notices {
		s.callbacks.Notify(event.ApplicationId, event.ActivationId)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// deactivateExpired mirrors the lifecycle lazy expiration for the verifier
// path.
func (s *SignatureService) deactivateExpired(tx *gorm.DB, activation *domain.Activation, now time.Time) (bool, error) {
	if activation.ActivationStatus != domain.ActivationCreated && activation.ActivationStatus != domain.ActivationOtpUsed {
		return false, nil
	}
	if !now.After(*activation.TimestampActivationExpire) {
		return false, nil
	}
	activation.ActivationStatus = domain.ActivationRemoved
	if err := s.activations.Update(tx, activation); err != nil {
		return false, err
	}
	if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SignatureService) invalidResponse(activation *domain.Activation) *response.VerifySignatureResponse {
	remaining := activation.MaxFailedAttempts - activation.FailedAttempts
	if remaining < 0 {
		remaining = 0
	}
	return &response.VerifySignatureResponse{
		SignatureValid:    false,
		ActivationId:      activation.ActivationId,
		ActivationStatus:  activation.ActivationStatus.String(),
		BlockedReason:     activation.BlockedReason,
		UserId:            activation.UserId,
		ApplicationId:     activation.ApplicationId,
		RemainingAttempts: remaining,
	}
}

func (s *SignatureService) logAttempt(tx *gorm.DB, activation *domain.Activation, signatureType, signature string, data []byte, valid bool, note string) error {
	now := s.clock.Now()
	return s.audit.LogSignatureAudit(tx, &domain.SignatureAudit{
		ActivationId:      activation.ActivationId,
		UserId:            activation.UserId,
		ApplicationId:     activation.ApplicationId,
		ActivationCounter: activation.Counter,
		ActivationStatus:  activation.ActivationStatus,
		SignatureType:     signatureType,
		Signature:         signature,
		DataHash:          dataHash(data),
		Valid:             valid,
		Note:              note,
		TimestampCreated:  &now,
	})
}

// factorKeys rebuilds the per-factor signature keys of an activation.
func (s *SignatureService) factorKeys(activation *domain.Activation, sigType crypto.SignatureType) ([][]byte, error) {
	serverPrivateKeyBytes, err := s.keyCodec.Decode(
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
	signatureKeys, err := crypto.DeriveSignatureKeys(masterSecret)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	return sigType.FactorKeys(signatureKeys)
}

// CreatePersonalizedOfflineSignaturePayload signs data with the server key
// of one activation; the device verifies it offline with the server public
// key it learned during activation.
func (s *SignatureService) CreatePersonalizedOfflineSignaturePayload(req *request.CreatePersonalizedOfflineSignaturePayloadRequest) (*response.CreateOfflineSignaturePayloadResponse, error) {
	activation, err := s.activations.FindActivation(s.db, req.ActivationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, serviceerror.New(serviceerror.CodeActivationNotFound)
		}
		return nil, err
	}

	serverPrivateKeyBytes, err := s.keyCodec.Decode(
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
	return buildOfflinePayload([]byte(req.Data), serverPrivateKey)
}

// CreateNonPersonalizedOfflineSignaturePayload signs data with the
// application's master private key.
func (s *SignatureService) CreateNonPersonalizedOfflineSignaturePayload(req *request.CreateNonPersonalizedOfflineSignaturePayloadRequest) (*response.CreateOfflineSignaturePayloadResponse, error) {
	masterKeyPair, err := s.applications.FindCurrentMasterKeyPair(s.db, req.ApplicationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, serviceerror.New(serviceerror.CodeNoMasterServerKeypair)
		}
		return nil, err
	}
	masterPrivateKeyBytes, err := base64.StdEncoding.DecodeString(masterKeyPair.MasterKeyPrivateBase64)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
	}
	masterPrivateKey, err := crypto.PrivateKeyFromBytes(masterPrivateKeyBytes)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
	}
	return buildOfflinePayload([]byte(req.Data), masterPrivateKey)
}

// buildOfflinePayload assembles the QR-code payload: the data, a fresh
// nonce and an ECDSA signature over both, newline-separated.
func buildOfflinePayload(data []byte, signingKey *ecdsa.PrivateKey) (*response.CreateOfflineSignaturePayloadResponse, error) {
	nonceBytes, err := crypto.RandomBytes(16)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	nonce := base64.StdEncoding.EncodeToString(nonceBytes)

	signed := make([]byte, 0, len(data)+1+len(nonce))
	signed = append(signed, data...)
	signed = append(signed, '&')
	signed = append(signed, nonce...)
	signature, err := crypto.ComputeDataSignature(signed, signingKey)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeUnableToComputeSignature)
	}

	offlineData := string(data) + "\n" + nonce + "\n" + base64.StdEncoding.EncodeToString(signature)
	return &response.CreateOfflineSignaturePayloadResponse{
		OfflineData: offlineData,
		Nonce:       nonce,
	}, nil
}
