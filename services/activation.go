package services

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"activation_server/config"
	"activation_server/crypto"
	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"
	"activation_server/serviceerror"

	"github.com/hashicorp/go-uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Current protocol major version. Activations report it as the upgrade
// target in their status blob.
const protocolVersion = 3

// pendingStates are the states an activation code can still be redeemed
// from; code uniqueness is enforced within them.
var pendingStates = []domain.ActivationStatus{domain.ActivationCreated, domain.ActivationOtpUsed}

// ActivationConfig carries the tunables of the activation lifecycle.
type ActivationConfig struct {
	IdIterations      int
	CodeIterations    int
	ValidityMillis    int64
	MaxFailedAttempts int64
}

// ActivationConfigFromGlobal reads the lifecycle tunables from the loaded
// configuration.
func ActivationConfigFromGlobal() ActivationConfig {
	c := config.Conf.Application.Crypto
	return ActivationConfig{
		IdIterations:      c.ActivationIdIterations,
		CodeIterations:    c.ActivationCodeIterations,
		ValidityMillis:    c.ActivationValidityMillis,
		MaxFailedAttempts: c.SignatureMaxFailedAttempts,
	}
}

// RecoveryDataIssuer creates recovery data for a freshly prepared
// activation, inside the activation's own transaction.
type RecoveryDataIssuer interface {
	IssueForActivation(tx *gorm.DB, applicationId uint, userId, activationId string) (*response.ActivationRecoveryData, error)
}

type IActivationService interface {
	InitActivation(req *request.InitActivationRequest) (*response.InitActivationResponse, error)
	// InitActivationInTx is the transactional core of InitActivation; the
	// recovery subsystem reuses it when a redeemed PUK spawns a new
	// activation.
	InitActivationInTx(tx *gorm.DB, applicationId uint, userId string, maxFailedAttempts *int64, expireAt *time.Time) (*response.InitActivationResponse, error)
	PrepareActivation(req *request.PrepareActivationRequest) (*response.PrepareActivationResponse, error)
	CreateActivation(req *request.CreateActivationRequest) (*response.PrepareActivationResponse, error)
	CommitActivation(activationId string) (*response.CommitActivationResponse, error)
	GetActivationStatus(activationId string) (*response.GetActivationStatusResponse, error)
	BlockActivation(activationId, reason string) (*response.BlockActivationResponse, error)
	UnblockActivation(activationId string) (*response.UnblockActivationResponse, error)
	RemoveActivation(activationId string) (*response.RemoveActivationResponse, error)
	GetActivationListForUser(req *request.GetActivationListForUserRequest) (*response.GetActivationListForUserResponse, error)
}

type ActivationService struct {
	db           *gorm.DB
	runTx        TxRunner
	activations  repository.IActivationRepository
	applications repository.IApplicationRepository
	audit        IAuditService
	callbacks    ICallbackService
	redis        IRedisService
	keyCodec     *crypto.ServerPrivateKeyCodec
	clock        Clock
	cfg          ActivationConfig

	recoveryIssuer RecoveryDataIssuer
}

func NewActivationService(
	db *gorm.DB,
	runTx TxRunner,
	activations repository.IActivationRepository,
	applications repository.IApplicationRepository,
	audit IAuditService,
	callbacks ICallbackService,
	redis IRedisService,
	keyCodec *crypto.ServerPrivateKeyCodec,
	clock Clock,
	cfg ActivationConfig,
) *ActivationService {
	return &ActivationService{
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

// SetRecoveryIssuer wires the recovery subsystem in after construction; the
// two services depend on each other.
func (s *ActivationService) SetRecoveryIssuer(issuer RecoveryDataIssuer) {
	s.recoveryIssuer = issuer
}

// deactivatePendingActivation removes a pending activation whose expiration
// timestamp has passed. Returns true when a state change happened; the
// caller owes a callback notification after commit.
func (s *ActivationService) deactivatePendingActivation(tx *gorm.DB, activation *domain.Activation, now time.Time) (bool, error) {
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

func (s *ActivationService) InitActivation(req *request.InitActivationRequest) (*response.InitActivationResponse, error) {
	var resp *response.InitActivationResponse
	err := s.runTx(func(tx *gorm.DB) error {
		var err error
		resp, err = s.InitActivationInTx(tx, req.ApplicationId, req.UserId, req.MaxFailedAttempts, req.TimestampActivationExpire)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.callbacks.Notify(resp.ApplicationId, resp.ActivationId)
	return resp, nil
}

func (s *ActivationService) InitActivationInTx(tx *gorm.DB, applicationId uint, userId string, maxFailedAttempts *int64, expireAt *time.Time) (*response.InitActivationResponse, error) {
	now := s.clock.Now()

	if userId == "" {
		return nil, serviceerror.New(serviceerror.CodeNoUserID)
	}
	if applicationId == 0 {
		return nil, serviceerror.New(serviceerror.CodeNoApplicationID)
	}

	maxAttempts := s.cfg.MaxFailedAttempts
	if maxFailedAttempts != nil {
		maxAttempts = *maxFailedAttempts
	}
	expiration := now.Add(time.Duration(s.cfg.ValidityMillis) * time.Millisecond)
	if expireAt != nil {
		expiration = *expireAt
	}

	masterKeyPair, err := s.applications.FindCurrentMasterKeyPair(tx, applicationId)
	if err != nil {
		if repository.IsNotFound(err) {
			config.Logger.Error("No master key pair found for application",
				zap.Uint("application_id", applicationId))
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
		config.Logger.Error("Master private key is invalid for application",
			zap.Uint("application_id", applicationId))
		return nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
	}

	// Activation ID with collision retry.
	var activationId string
	for i := 0; i < s.cfg.IdIterations; i++ {
		candidate, err := uuid.GenerateUUID()
		if err != nil {
			return nil, err
		}
		_, err = s.activations.FindActivation(tx, candidate)
		if repository.IsNotFound(err) {
			activationId = candidate
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if activationId == "" {
		return nil, serviceerror.New(serviceerror.CodeUnableToGenerateActivationID)
	}

	// Activation code with collision retry against pending, unexpired
	// activations of the same application.
	var activationCode string
	for i := 0; i < s.cfg.CodeIterations; i++ {
		candidate, err := crypto.GenerateActivationCode()
		if err != nil {
			return nil, err
		}
		_, err = s.activations.FindCreatedActivation(tx, applicationId, candidate, pendingStates, now)
		if repository.IsNotFound(err) {
			activationCode = candidate
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if activationCode == "" {
		return nil, serviceerror.New(serviceerror.CodeUnableToGenerateShortActivationID)
	}

	activationSignature, err := crypto.SignActivationCode(activationCode, masterPrivateKey)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeUnableToComputeSignature)
	}

	serverKeyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	serverPrivateKeyStored, encryptionMode, err := s.keyCodec.Encode(
		crypto.PrivateKeyToBytes(serverKeyPair.PrivateKey), userId, activationId)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	activation := &domain.Activation{
		ActivationId:               activationId,
		ActivationCode:             activationCode,
		UserId:                     userId,
		ApplicationId:              applicationId,
		MasterKeyPairId:            masterKeyPair.Id,
		ActivationStatus:           domain.ActivationCreated,
		Counter:                    0,
		FailedAttempts:             0,
		MaxFailedAttempts:          maxAttempts,
		ServerPublicKeyBase64:      base64.StdEncoding.EncodeToString(crypto.PublicKeyToBytes(serverKeyPair.PublicKey)),
		ServerPrivateKeyBase64:     serverPrivateKeyStored,
		ServerPrivateKeyEncryption: domain.KeyEncryptionMode(encryptionMode),
		TimestampCreated:           &now,
		TimestampLastUsed:          &now,
		TimestampActivationExpire:  &expiration,
	}
	if _, err := s.activations.Create(tx, activation); err != nil {
		return nil, err
	}
	if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
		return nil, err
	}

	return &response.InitActivationResponse{
		ActivationId:        activationId,
		ActivationCode:      activationCode,
		ActivationSignature: base64.StdEncoding.EncodeToString(activationSignature),
		UserId:              userId,
		ApplicationId:       applicationId,
	}, nil
}

func (s *ActivationService) PrepareActivation(req *request.PrepareActivationRequest) (*response.PrepareActivationResponse, error) {
	var resp *response.PrepareActivationResponse
	var notices []ActivationChangeEvent
	var opErr error
	err := s.runTx(func(tx *gorm.DB) error {
		var err error
		resp, notices, opErr, err = s.prepareActivationInTx(tx, req)
		return err
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return resp, nil
}

// prepareActivationInTx splits its failure modes: err aborts and rolls back
// the transaction, opErr commits whatever was written (the invalid-key
// removal has to survive the failed request) and surfaces after commit.
func (s *ActivationService) prepareActivationInTx(tx *gorm.DB, req *request.PrepareActivationRequest) (*response.PrepareActivationResponse, []ActivationChangeEvent, error, error) {
	now := s.clock.Now()

	version, err := lookupApplicationVersion(tx, s.redis, s.applications, req.ApplicationKey)
	if err != nil {
		return nil, nil, nil, err
	}
	if !version.Supported {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}

	activation, err := s.activations.FindCreatedActivation(tx, version.ApplicationId, req.ActivationCode,
		[]domain.ActivationStatus{domain.ActivationCreated}, now)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, nil, serviceerror.New(serviceerror.CodeActivationNotFound)
		}
		return nil, nil, nil, err
	}

	masterKeyPair, err := s.applications.FindCurrentMasterKeyPair(tx, version.ApplicationId)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeNoMasterServerKeypair)
	}
	masterPrivateKeyBytes, err := base64.StdEncoding.DecodeString(masterKeyPair.MasterKeyPrivateBase64)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
	}
	masterPrivateKey, err := crypto.PrivateKeyFromBytes(masterPrivateKeyBytes)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
	}

	envelope, err := decodeEnvelope(req.EphemeralPublicKey, req.EncryptedData, req.Mac)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}

	// An undecryptable or off-curve device key removes the activation; the
	// caller learns only that no such activation exists.
	devicePublicKeyBytes, decryptErr := crypto.Decrypt(envelope, masterPrivateKey, version.ApplicationSecret)
	var devicePublicKeyValid bool
	if decryptErr == nil {
		if _, keyErr := crypto.PublicKeyFromBytes(devicePublicKeyBytes); keyErr == nil {
			devicePublicKeyValid = true
		}
	}
	if !devicePublicKeyValid {
		activation.ActivationStatus = domain.ActivationRemoved
		if err := s.activations.Update(tx, activation); err != nil {
			return nil, nil, nil, err
		}
		if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
			return nil, nil, nil, err
		}
		notices := []ActivationChangeEvent{{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId}}
		return nil, notices, serviceerror.New(serviceerror.CodeActivationNotFound), nil
	}

	activation.DevicePublicKeyBase64 = base64.StdEncoding.EncodeToString(devicePublicKeyBytes)
	activation.ActivationStatus = domain.ActivationOtpUsed
	activation.ActivationName = req.ActivationName
	activation.Extras = req.Extras
	if req.ProtocolVersion > 0 {
		v := req.ProtocolVersion
		activation.Version = &v
	}
	if err := s.activations.Update(tx, activation); err != nil {
		return nil, nil, nil, err
	}
	if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
		return nil, nil, nil, err
	}

	serverPublicKeyBytes, err := base64.StdEncoding.DecodeString(activation.ServerPublicKeyBase64)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	fingerprint, err := crypto.ComputeDevicePublicKeyFingerprint(devicePublicKeyBytes, serverPublicKeyBytes, activation.ActivationId)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	payload := response.ActivationLayerResponsePayload{
		ActivationId:               activation.ActivationId,
		ServerPublicKey:            activation.ServerPublicKeyBase64,
		DevicePublicKeyFingerprint: fingerprint,
	}
	if s.recoveryIssuer != nil {
		recoveryData, err := s.recoveryIssuer.IssueForActivation(tx, activation.ApplicationId, activation.UserId, activation.ActivationId)
		if err != nil {
			return nil, nil, nil, err
		}
		payload.ActivationRecovery = recoveryData
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, nil, err
	}
	// The response is sealed to the device public key that just arrived;
	// only the device that started the exchange can open it.
	devicePublicKey, err := crypto.PublicKeyFromBytes(devicePublicKeyBytes)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	responseEnvelope, err := crypto.Encrypt(plaintext, devicePublicKey, version.ApplicationSecret)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	notices := []ActivationChangeEvent{{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId}}
	return &response.PrepareActivationResponse{
		ActivationId:       activation.ActivationId,
		EphemeralPublicKey: base64.StdEncoding.EncodeToString(responseEnvelope.EphemeralPublicKey),
		EncryptedData:      base64.StdEncoding.EncodeToString(append(responseEnvelope.IV, responseEnvelope.Ciphertext...)),
		Mac:                base64.StdEncoding.EncodeToString(responseEnvelope.MAC),
	}, notices, nil, nil
}

// CreateActivation runs Init and Prepare in a single transaction for flows
// with no out-of-band activation code entry.
func (s *ActivationService) CreateActivation(req *request.CreateActivationRequest) (*response.PrepareActivationResponse, error) {
	var resp *response.PrepareActivationResponse
	var notices []ActivationChangeEvent
	var opErr error
	err := s.runTx(func(tx *gorm.DB) error {
		version, err := lookupApplicationVersion(tx, s.redis, s.applications, req.ApplicationKey)
		if err != nil {
			return err
		}
		initResp, err := s.InitActivationInTx(tx, version.ApplicationId, req.UserId, req.MaxFailedAttempts, req.TimestampActivationExpire)
		if err != nil {
			return err
		}
		prepareReq := &request.PrepareActivationRequest{
			ActivationCode:     initResp.ActivationCode,
			ApplicationKey:     req.ApplicationKey,
			ActivationName:     req.ActivationName,
			Extras:             req.Extras,
			EphemeralPublicKey: req.EphemeralPublicKey,
			EncryptedData:      req.EncryptedData,
			Mac:                req.Mac,
			ProtocolVersion:    req.ProtocolVersion,
		}
		resp, notices, opErr, err = s.prepareActivationInTx(tx, prepareReq)
		return err
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return resp, nil
}

func (s *ActivationService) CommitActivation(activationId string) (*response.CommitActivationResponse, error) {
	var resp *response.CommitActivationResponse
	var notices []ActivationChangeEvent
	var opErr error
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		activation, err := s.activations.FindActivationForUpdate(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeActivationNotFound)
			}
			return err
		}

		// Lazy expiration commits even though the commit call then fails.
		expired, err := s.deactivatePendingActivation(tx, activation, now)
		if err != nil {
			return err
		}
		if expired {
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}
		if activation.ActivationStatus == domain.ActivationRemoved {
			opErr = serviceerror.New(serviceerror.CodeActivationExpired)
			return nil
		}
		if activation.ActivationStatus != domain.ActivationOtpUsed {
			opErr = serviceerror.New(serviceerror.CodeActivationIncorrectState)
			return nil
		}

		activation.ActivationStatus = domain.ActivationActive
		if err := s.activations.Update(tx, activation); err != nil {
			return err
		}
		if err := s.audit.LogActivationStatusChange(tx, activation, now); err != nil {
			return err
		}
		notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		resp = &response.CommitActivationResponse{ActivationId: activationId, Activated: true}
		return nil
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return resp, nil
}

func (s *ActivationService) BlockActivation(activationId, reason string) (*response.BlockActivationResponse, error) {
	var resp *response.BlockActivationResponse
	var notices []ActivationChangeEvent
	err := s.runTx(func(tx *gorm.DB) error {
		activation, err := s.activations.FindActivationForUpdate(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeActivationNotFound)
			}
			return err
		}
		if activation.ActivationStatus == domain.ActivationActive {
			activation.ActivationStatus = domain.ActivationBlocked
			if reason == "" {
				activation.BlockedReason = domain.BlockedReasonNotSpecified
			} else {
				activation.BlockedReason = reason
			}
			if err := s.activations.Update(tx, activation); err != nil {
				return err
			}
			if err := s.audit.LogActivationStatusChange(tx, activation, s.clock.Now()); err != nil {
				return err
			}
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}
		resp = &response.BlockActivationResponse{
			ActivationId:     activationId,
			ActivationStatus: activation.ActivationStatus.String(),
			BlockedReason:    activation.BlockedReason,
		}
		return nil
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ActivationService) UnblockActivation(activationId string) (*response.UnblockActivationResponse, error) {
	var resp *response.UnblockActivationResponse
	var notices []ActivationChangeEvent
	err := s.runTx(func(tx *gorm.DB) error {
		activation, err := s.activations.FindActivationForUpdate(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeActivationNotFound)
			}
			return err
		}
		if activation.ActivationStatus == domain.ActivationBlocked {
			activation.ActivationStatus = domain.ActivationActive
			activation.BlockedReason = ""
			activation.FailedAttempts = 0
			if err := s.activations.Update(tx, activation); err != nil {
				return err
			}
			if err := s.audit.LogActivationStatusChange(tx, activation, s.clock.Now()); err != nil {
				return err
			}
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}
		resp = &response.UnblockActivationResponse{
			ActivationId:     activationId,
			ActivationStatus: activation.ActivationStatus.String(),
		}
		return nil
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ActivationService) RemoveActivation(activationId string) (*response.RemoveActivationResponse, error) {
	var resp *response.RemoveActivationResponse
	var notices []ActivationChangeEvent
	err := s.runTx(func(tx *gorm.DB) error {
		activation, err := s.activations.FindActivationForUpdate(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeActivationNotFound)
			}
			return err
		}
		// Removing an already removed activation is a no-op.
		if activation.ActivationStatus != domain.ActivationRemoved {
			activation.ActivationStatus = domain.ActivationRemoved
			if err := s.activations.Update(tx, activation); err != nil {
				return err
			}
			if err := s.audit.LogActivationStatusChange(tx, activation, s.clock.Now()); err != nil {
				return err
			}
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}
		resp = &response.RemoveActivationResponse{ActivationId: activationId, Removed: true}
		return nil
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ActivationService) GetActivationStatus(activationId string) (*response.GetActivationStatusResponse, error) {
	var resp *response.GetActivationStatusResponse
	var notices []ActivationChangeEvent
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		activation, err := s.activations.FindActivation(tx, activationId)
		if err != nil {
			if repository.IsNotFound(err) {
				resp, err = s.unknownActivationStatus(activationId)
				return err
			}
			return err
		}

		expired, err := s.deactivatePendingActivation(tx, activation, now)
		if err != nil {
			return err
		}
		if expired {
			notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
		}

		resp, err = s.activationStatusResponse(tx, activation)
		return err
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// unknownActivationStatus synthesizes a REMOVED-shaped response for an
// activation that does not exist, indistinguishable from a removed one.
func (s *ActivationService) unknownActivationStatus(activationId string) (*response.GetActivationStatusResponse, error) {
	randomBlob, err := crypto.RandomStatusBlob()
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	epoch := time.Unix(0, 0).UTC()
	return &response.GetActivationStatusResponse{
		ActivationId:        activationId,
		ActivationStatus:    domain.ActivationRemoved.String(),
		ActivationName:      "unknown",
		UserId:              "unknown",
		ApplicationId:       0,
		TimestampCreated:    epoch,
		TimestampLastUsed:   epoch,
		EncryptedStatusBlob: base64.StdEncoding.EncodeToString(randomBlob),
		ProtocolVersion:     0,
	}, nil
}

func (s *ActivationService) activationStatusResponse(tx *gorm.DB, activation *domain.Activation) (*response.GetActivationStatusResponse, error) {
	version := int64(0)
	if activation.Version != nil {
		version = *activation.Version
	}

	resp := &response.GetActivationStatusResponse{
		ActivationId:      activation.ActivationId,
		ActivationStatus:  activation.ActivationStatus.String(),
		BlockedReason:     activation.BlockedReason,
		ActivationName:    activation.ActivationName,
		UserId:            activation.UserId,
		Extras:            activation.Extras,
		ApplicationId:     activation.ApplicationId,
		TimestampCreated:  *activation.TimestampCreated,
		TimestampLastUsed: *activation.TimestampLastUsed,
		ProtocolVersion:   version,
	}

	if activation.ActivationStatus == domain.ActivationCreated {
		// No key agreement happened yet, so there is nothing to encrypt the
		// blob under. The code and its signature are re-served for retry.
		randomBlob, err := crypto.RandomStatusBlob()
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
		}
		resp.EncryptedStatusBlob = base64.StdEncoding.EncodeToString(randomBlob)
		resp.ActivationCode = activation.ActivationCode

		masterKeyPair, err := s.applications.FindCurrentMasterKeyPair(tx, activation.ApplicationId)
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeNoMasterServerKeypair)
		}
		masterPrivateKeyBytes, err := base64.StdEncoding.DecodeString(masterKeyPair.MasterKeyPrivateBase64)
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
		}
		masterPrivateKey, err := crypto.PrivateKeyFromBytes(masterPrivateKeyBytes)
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeIncorrectMasterServerKeypairPrivate)
		}
		signature, err := crypto.SignActivationCode(activation.ActivationCode, masterPrivateKey)
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeUnableToComputeSignature)
		}
		resp.ActivationSignature = base64.StdEncoding.EncodeToString(signature)
		return resp, nil
	}

	// An activation removed straight from CREATED has no device key; the
	// blob defaults to random in that case.
	if activation.DevicePublicKeyBase64 == "" {
		randomBlob, err := crypto.RandomStatusBlob()
		if err != nil {
			return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
		}
		resp.EncryptedStatusBlob = base64.StdEncoding.EncodeToString(randomBlob)
		return resp, nil
	}

	transportKey, devicePublicKeyBytes, serverPublicKeyBytes, err := s.deriveTransportKey(activation)
	if err != nil {
		return nil, err
	}

	blob := &crypto.StatusBlob{
		Status:            byte(activation.ActivationStatus),
		CurrentVersion:    byte(version),
		UpgradeVersion:    protocolVersion,
		FailedAttempts:    byte(activation.FailedAttempts),
		MaxFailedAttempts: byte(activation.MaxFailedAttempts),
		CtrDistance:       0,
	}
	encryptedBlob, err := crypto.EncryptStatusBlob(blob, transportKey, activation.Counter)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	resp.EncryptedStatusBlob = base64.StdEncoding.EncodeToString(encryptedBlob)

	fingerprint, err := crypto.ComputeDevicePublicKeyFingerprint(devicePublicKeyBytes, serverPublicKeyBytes, activation.ActivationId)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	resp.DevicePublicKeyFingerprint = fingerprint
	return resp, nil
}

// deriveTransportKey rebuilds the transport key of an activation from the
// stored server private key and device public key.
func (s *ActivationService) deriveTransportKey(activation *domain.Activation) (transportKey, devicePublicKeyBytes, serverPublicKeyBytes []byte, err error) {
	serverPrivateKeyBytes, err := s.keyCodec.Decode(
		activation.ServerPrivateKeyBase64,
		crypto.EncryptionMode(activation.ServerPrivateKeyEncryption),
		activation.UserId, activation.ActivationId)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	serverPrivateKey, err := crypto.PrivateKeyFromBytes(serverPrivateKeyBytes)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	devicePublicKeyBytes, err = base64.StdEncoding.DecodeString(activation.DevicePublicKeyBase64)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	devicePublicKey, err := crypto.PublicKeyFromBytes(devicePublicKeyBytes)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}
	serverPublicKeyBytes, err = base64.StdEncoding.DecodeString(activation.ServerPublicKeyBase64)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeInvalidKeyFormat)
	}

	masterSecret, err := crypto.SharedSecret(serverPrivateKey, devicePublicKey)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	transportKey, err = crypto.DeriveKey(masterSecret, crypto.KeyDomainTransport)
	if err != nil {
		return nil, nil, nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}
	return transportKey, devicePublicKeyBytes, serverPublicKeyBytes, nil
}

func (s *ActivationService) GetActivationListForUser(req *request.GetActivationListForUserRequest) (*response.GetActivationListForUserResponse, error) {
	if req.UserId == "" {
		return nil, serviceerror.New(serviceerror.CodeNoUserID)
	}

	var resp *response.GetActivationListForUserResponse
	var notices []ActivationChangeEvent
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()

		var activations []domain.Activation
		var err error
		if req.ApplicationId == 0 {
			activations, err = s.activations.FindByUserId(tx, req.UserId)
		} else {
			activations, err = s.activations.FindByApplicationIdAndUserId(tx, req.ApplicationId, req.UserId)
		}
		if err != nil {
			return err
		}

		resp = &response.GetActivationListForUserResponse{
			UserId:      req.UserId,
			Activations: make([]response.ActivationListItem, 0, len(activations)),
		}
		for i := range activations {
			activation := &activations[i]
			expired, err := s.deactivatePendingActivation(tx, activation, now)
			if err != nil {
				return err
			}
			if expired {
				notices = append(notices, ActivationChangeEvent{ApplicationId: activation.ApplicationId, ActivationId: activation.ActivationId})
			}
			applicationName := ""
			if app, err := s.applications.GetById(tx, activation.ApplicationId); err == nil {
				applicationName = app.Name
			}
			resp.Activations = append(resp.Activations, response.ActivationListItem{
				ActivationId:      activation.ActivationId,
				ActivationStatus:  activation.ActivationStatus.String(),
				BlockedReason:     activation.BlockedReason,
				ActivationName:    activation.ActivationName,
				Extras:            activation.Extras,
				UserId:            activation.UserId,
				ApplicationId:     activation.ApplicationId,
				ApplicationName:   applicationName,
				TimestampCreated:  *activation.TimestampCreated,
				TimestampLastUsed: *activation.TimestampLastUsed,
			})
		}
		return nil
	})
	if err == nil {
		for _, event := range notices {
			s.callbacks.Notify(event.ApplicationId, event.ActivationId)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// decodeEnvelope rebuilds an activation-layer envelope from its base64 wire
// fields. EncryptedData carries IV||ciphertext.
func decodeEnvelope(ephemeralPublicKey, encryptedData, mac string) (*crypto.Envelope, error) {
	ephemeral, err := base64.StdEncoding.DecodeString(ephemeralPublicKey)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return nil, err
	}
	macBytes, err := base64.StdEncoding.DecodeString(mac)
	if err != nil {
		return nil, err
	}
	if len(data) < 32 {
		return nil, crypto.ErrEnvelopePadding
	}
	return &crypto.Envelope{
		EphemeralPublicKey: ephemeral,
		IV:                 data[:16],
		Ciphertext:         data[16:],
		MAC:                macBytes,
	}, nil
}
