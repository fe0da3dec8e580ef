package services

import (
	"encoding/base64"

	"activation_server/config"
	"activation_server/crypto"
	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"
	"activation_server/serviceerror"

	"gorm.io/gorm"
)

// RecoveryConfigValues carries the recovery subsystem tunables.
type RecoveryConfigValues struct {
	CodeIterations    int
	MaxFailedAttempts int64
	PuksPerCode       int
	MasterKey         []byte
}

// RecoveryConfigFromGlobal reads the recovery tunables from the loaded
// configuration.
func RecoveryConfigFromGlobal() RecoveryConfigValues {
	masterKey, _ := base64.StdEncoding.DecodeString(config.Conf.Application.MasterDBEncryptionKey)
	return RecoveryConfigValues{
		CodeIterations:    config.Conf.Application.Crypto.RecoveryCodeIterations,
		MaxFailedAttempts: config.Conf.Application.Recovery.MaxFailedAttempts,
		PuksPerCode:       config.Conf.Application.Recovery.PuksPerCode,
		MasterKey:         masterKey,
	}
}

type IRecoveryService interface {
	RecoveryDataIssuer
	CreateRecoveryCode(req *request.CreateRecoveryCodeRequest) (*response.CreateRecoveryCodeResponse, error)
	ConfirmRecoveryCode(req *request.ConfirmRecoveryCodeRequest) (*response.ConfirmRecoveryCodeResponse, error)
	LookupRecoveryCodes(req *request.LookupRecoveryCodesRequest) (*response.LookupRecoveryCodesResponse, error)
	RevokeRecoveryCodes(req *request.RevokeRecoveryCodesRequest) (*response.RevokeRecoveryCodesResponse, error)
	RecoveryCodeActivation(req *request.RecoveryCodeActivationRequest) (*response.RecoveryCodeActivationResponse, error)
	GetRecoveryConfig(applicationId uint) (*response.GetRecoveryConfigResponse, error)
	UpdateRecoveryConfig(req *request.UpdateRecoveryConfigRequest) (*response.UpdateRecoveryConfigResponse, error)
}

type RecoveryService struct {
	db           *gorm.DB
	runTx        TxRunner
	repo         repository.IRecoveryRepository
	applications repository.IApplicationRepository
	redis        IRedisService
	activations  *ActivationService
	clock        Clock
	cfg          RecoveryConfigValues
}

func NewRecoveryService(
	db *gorm.DB,
	runTx TxRunner,
	repo repository.IRecoveryRepository,
	applications repository.IApplicationRepository,
	redis IRedisService,
	activations *ActivationService,
	clock Clock,
	cfg RecoveryConfigValues,
) IRecoveryService {
	return &RecoveryService{
		db:           db,
		runTx:        runTx,
		repo:         repo,
		applications: applications,
		redis:        redis,
		activations:  activations,
		clock:        clock,
		cfg:          cfg,
	}
}

// generateCode finds an unused recovery code within the retry budget.
func (s *RecoveryService) generateCode(tx *gorm.DB, applicationId uint) (string, error) {
	for i := 0; i < s.cfg.CodeIterations; i++ {
		candidate, err := crypto.GenerateRecoveryCode()
		if err != nil {
			return "", err
		}
		_, err = s.repo.FindCodeByValue(tx, applicationId, candidate)
		if repository.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", serviceerror.New(serviceerror.CodeUnableToGenerateRecoveryCode)
}

// createCodeWithPuks persists one recovery code with freshly generated PUK
// digests and returns the PUK plaintexts, which are never stored.
func (s *RecoveryService) createCodeWithPuks(tx *gorm.DB, applicationId uint, userId string, activationId *string, pukCount int, status domain.RecoveryCodeStatus) (*domain.RecoveryCode, []string, error) {
	code, err := s.generateCode(tx, applicationId)
	if err != nil {
		return nil, nil, err
	}

	hashKey := crypto.DerivePukHashKey(s.cfg.MasterKey, code)
	now := s.clock.Now()
	entity := &domain.RecoveryCode{
		ApplicationId:     applicationId,
		UserId:            userId,
		ActivationId:      activationId,
		RecoveryCode:      code,
		Status:            status,
		FailedAttempts:    0,
		MaxFailedAttempts: s.cfg.MaxFailedAttempts,
		TimestampCreated:  &now,
	}
	puks := make([]string, 0, pukCount)
	for i := 1; i <= pukCount; i++ {
		puk, err := crypto.GeneratePuk()
		if err != nil {
			return nil, nil, err
		}
		puks = append(puks, puk)
		entity.Puks = append(entity.Puks, domain.RecoveryPuk{
			PukIndex: int64(i),
			PukHash:  crypto.HashPuk(puk, hashKey),
			Status:   domain.RecoveryPukValid,
		})
	}
	if _, err := s.repo.CreateCode(tx, entity); err != nil {
		return nil, nil, err
	}
	return entity, puks, nil
}

func (s *RecoveryService) CreateRecoveryCode(req *request.CreateRecoveryCodeRequest) (*response.CreateRecoveryCodeResponse, error) {
	pukCount := req.PukCount
	if pukCount == 0 {
		pukCount = s.cfg.PuksPerCode
	}

	var resp *response.CreateRecoveryCodeResponse
	err := s.runTx(func(tx *gorm.DB) error {
		allowMultiple := false
		if cfg, err := s.repo.FindConfig(tx, req.ApplicationId); err == nil {
			allowMultiple = cfg.AllowMultipleRecoveryCodes
		}
		if !allowMultiple {
			existing, err := s.repo.FindCodesByUser(tx, req.ApplicationId, req.UserId)
			if err != nil {
				return err
			}
			for _, code := range existing {
				if code.Status == domain.RecoveryCodeCreated || code.Status == domain.RecoveryCodeActive {
					return serviceerror.New(serviceerror.CodeRecoveryCodeAlreadyExists)
				}
			}
		}

		entity, puks, err := s.createCodeWithPuks(tx, req.ApplicationId, req.UserId, nil, pukCount, domain.RecoveryCodeActive)
		if err != nil {
			return err
		}
		resp = &response.CreateRecoveryCodeResponse{
			RecoveryCodeId: entity.Id,
			RecoveryCode:   entity.RecoveryCode,
			Status:         entity.Status.String(),
			Puks:           puks,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// IssueForActivation creates the recovery data bundled with a freshly
// prepared activation, inside the activation's transaction. Disabled
// recovery yields no data and no error.
func (s *RecoveryService) IssueForActivation(tx *gorm.DB, applicationId uint, userId, activationId string) (*response.ActivationRecoveryData, error) {
	cfg, err := s.repo.FindConfig(tx, applicationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !cfg.ActivationRecoveryEnabled {
		return nil, nil
	}

	entity, puks, err := s.createCodeWithPuks(tx, applicationId, userId, &activationId, s.cfg.PuksPerCode, domain.RecoveryCodeCreated)
	if err != nil {
		return nil, err
	}
	return &response.ActivationRecoveryData{
		RecoveryCode: entity.RecoveryCode,
		Puks:         puks,
	}, nil
}

// ConfirmRecoveryCode flips a code issued with an activation from CREATED
// to ACTIVE once the device acknowledges it stored the PUKs.
func (s *RecoveryService) ConfirmRecoveryCode(req *request.ConfirmRecoveryCodeRequest) (*response.ConfirmRecoveryCodeResponse, error) {
	var resp *response.ConfirmRecoveryCodeResponse
	err := s.runTx(func(tx *gorm.DB) error {
		codes, err := s.repo.FindCodesByActivation(tx, req.ActivationId)
		if err != nil {
			return err
		}
		for i := range codes {
			code := &codes[i]
			if code.RecoveryCode != req.RecoveryCode {
				continue
			}
			switch code.Status {
			case domain.RecoveryCodeActive:
				resp = &response.ConfirmRecoveryCodeResponse{ActivationId: req.ActivationId, AlreadyConfirmed: true}
				return nil
			case domain.RecoveryCodeCreated:
				code.Status = domain.RecoveryCodeActive
				if err := s.repo.UpdateCode(tx, code); err != nil {
					return err
				}
				resp = &response.ConfirmRecoveryCodeResponse{ActivationId: req.ActivationId, AlreadyConfirmed: false}
				return nil
			}
		}
		return serviceerror.New(serviceerror.CodeInvalidRecoveryCode)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *RecoveryService) LookupRecoveryCodes(req *request.LookupRecoveryCodesRequest) (*response.LookupRecoveryCodesResponse, error) {
	var codes []domain.RecoveryCode
	var err error
	if req.ActivationId != "" {
		codes, err = s.repo.FindCodesByActivation(s.db, req.ActivationId)
	} else if req.UserId != "" {
		codes, err = s.repo.FindCodesByUser(s.db, req.ApplicationId, req.UserId)
	} else {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	if err != nil {
		return nil, err
	}

	resp := &response.LookupRecoveryCodesResponse{RecoveryCodes: make([]response.RecoveryCodeDetail, 0, len(codes))}
	for _, code := range codes {
		detail := response.RecoveryCodeDetail{
			RecoveryCodeId:    code.Id,
			RecoveryCode:      code.RecoveryCode,
			UserId:            code.UserId,
			ApplicationId:     code.ApplicationId,
			Status:            code.Status.String(),
			FailedAttempts:    code.FailedAttempts,
			MaxFailedAttempts: code.MaxFailedAttempts,
			TimestampCreated:  *code.TimestampCreated,
			Puks:              make([]response.RecoveryPukDetail, 0, len(code.Puks)),
		}
		if code.ActivationId != nil {
			detail.ActivationId = *code.ActivationId
		}
		for _, puk := range code.Puks {
			detail.Puks = append(detail.Puks, response.RecoveryPukDetail{
				PukIndex: puk.PukIndex,
				Status:   puk.Status.String(),
			})
		}
		resp.RecoveryCodes = append(resp.RecoveryCodes, detail)
	}
	return resp, nil
}

func (s *RecoveryService) RevokeRecoveryCodes(req *request.RevokeRecoveryCodesRequest) (*response.RevokeRecoveryCodesResponse, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		for _, id := range req.RecoveryCodeIds {
			code, err := s.repo.FindCodeById(tx, id)
			if err != nil {
				if repository.IsNotFound(err) {
					return serviceerror.New(serviceerror.CodeInvalidRecoveryCode)
				}
				return err
			}
			code.Status = domain.RecoveryCodeRevoked
			if err := s.repo.UpdateCode(tx, code); err != nil {
				return err
			}
			now := s.clock.Now()
			for i := range code.Puks {
				puk := &code.Puks[i]
				if puk.Status == domain.RecoveryPukValid {
					puk.Status = domain.RecoveryPukInvalid
					puk.TimestampLastChange = &now
					if err := s.repo.UpdatePuk(tx, puk); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response.RevokeRecoveryCodesResponse{Revoked: true}, nil
}

// RecoveryCodeActivation redeems the lowest-indexed valid PUK of an active
// recovery code and issues a brand new activation for the code's user. A
// failed attempt is persisted even though the call errors.
func (s *RecoveryService) RecoveryCodeActivation(req *request.RecoveryCodeActivationRequest) (*response.RecoveryCodeActivationResponse, error) {
	var resp *response.RecoveryCodeActivationResponse
	var opErr error
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()

		version, err := lookupApplicationVersion(tx, s.redis, s.applications, req.ApplicationKey)
		if err != nil {
			return err
		}

		code, err := s.repo.FindCodeForUpdate(tx, version.ApplicationId, req.RecoveryCode)
		if err != nil {
			if repository.IsNotFound(err) {
				opErr = serviceerror.New(serviceerror.CodeInvalidRecoveryCode)
				return nil
			}
			return err
		}
		if code.Status != domain.RecoveryCodeActive {
			opErr = serviceerror.New(serviceerror.CodeInvalidRecoveryCode)
			return nil
		}

		// The lowest-indexed VALID PUK is the current one; no other PUK is
		// acceptable.
		var current *domain.RecoveryPuk
		for i := range code.Puks {
			if code.Puks[i].Status == domain.RecoveryPukValid {
				current = &code.Puks[i]
				break
			}
		}
		if current == nil {
			opErr = serviceerror.New(serviceerror.CodeInvalidRecoveryCode)
			return nil
		}

		hashKey := crypto.DerivePukHashKey(s.cfg.MasterKey, code.RecoveryCode)
		if !crypto.VerifyPuk(req.Puk, current.PukHash, hashKey) {
			code.FailedAttempts++
			if code.FailedAttempts >= code.MaxFailedAttempts {
				code.Status = domain.RecoveryCodeBlocked
			}
			if err := s.repo.UpdateCode(tx, code); err != nil {
				return err
			}
			opErr = serviceerror.NewRecovery(serviceerror.CodeInvalidRecoveryCode, current.PukIndex)
			return nil
		}

		current.Status = domain.RecoveryPukUsed
		current.TimestampLastChange = &now
		if err := s.repo.UpdatePuk(tx, current); err != nil {
			return err
		}
		code.FailedAttempts = 0
		code.TimestampLastUsed = &now

		// With no VALID PUK left the code has done all it ever will.
		remaining := false
		for i := range code.Puks {
			if code.Puks[i].Id != current.Id && code.Puks[i].Status == domain.RecoveryPukValid {
				remaining = true
				break
			}
		}
		if !remaining {
			code.Status = domain.RecoveryCodeRevoked
		}
		if err := s.repo.UpdateCode(tx, code); err != nil {
			return err
		}

		initResp, err := s.activations.InitActivationInTx(tx, version.ApplicationId, code.UserId, nil, nil)
		if err != nil {
			return err
		}
		resp = &response.RecoveryCodeActivationResponse{
			ActivationId:        initResp.ActivationId,
			ActivationCode:      initResp.ActivationCode,
			ActivationSignature: initResp.ActivationSignature,
			UserId:              initResp.UserId,
			ApplicationId:       initResp.ApplicationId,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	s.activations.callbacks.Notify(resp.ApplicationId, resp.ActivationId)
	return resp, nil
}

func (s *RecoveryService) GetRecoveryConfig(applicationId uint) (*response.GetRecoveryConfigResponse, error) {
	resp := &response.GetRecoveryConfigResponse{ApplicationId: applicationId}
	cfg, err := s.repo.FindConfig(s.db, applicationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return resp, nil
		}
		return nil, err
	}
	resp.ActivationRecoveryEnabled = cfg.ActivationRecoveryEnabled
	resp.RecoveryPostcardEnabled = cfg.RecoveryPostcardEnabled
	resp.AllowMultipleRecoveryCodes = cfg.AllowMultipleRecoveryCodes
	return resp, nil
}

func (s *RecoveryService) UpdateRecoveryConfig(req *request.UpdateRecoveryConfigRequest) (*response.UpdateRecoveryConfigResponse, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		cfg, err := s.repo.FindConfig(tx, req.ApplicationId)
		if err != nil {
			if !repository.IsNotFound(err) {
				return err
			}
			cfg = &domain.RecoveryConfig{ApplicationId: req.ApplicationId}
		}
		cfg.ActivationRecoveryEnabled = req.ActivationRecoveryEnabled
		cfg.RecoveryPostcardEnabled = req.RecoveryPostcardEnabled
		cfg.AllowMultipleRecoveryCodes = req.AllowMultipleRecoveryCodes
		return s.repo.SaveConfig(tx, cfg)
	})
	if err != nil {
		return nil, err
	}
	return &response.UpdateRecoveryConfigResponse{Updated: true}, nil
}

var _ RecoveryDataIssuer = (*RecoveryService)(nil)
