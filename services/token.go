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

	"github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
)

// TokenConfig carries the token subsystem tunables.
type TokenConfig struct {
	IdIterations            int
	TimestampValidityMillis int64
}

// TokenConfigFromGlobal reads the token tunables from the loaded
// configuration.
func TokenConfigFromGlobal() TokenConfig {
	return TokenConfig{
		IdIterations:            config.Conf.Application.Crypto.TokenIdIterations,
		TimestampValidityMillis: config.Conf.Application.Token.TimestampValidityMillis,
	}
}

type ITokenService interface {
	CreateToken(req *request.CreateTokenRequest) (*response.TokenCreateResponse, error)
	ValidateToken(req *request.ValidateTokenRequest) (*response.TokenValidateResponse, error)
	RemoveToken(req *request.RemoveTokenRequest) (*response.TokenRemoveResponse, error)
}

type TokenService struct {
	db          *gorm.DB
	runTx       TxRunner
	tokens      repository.ITokenRepository
	activations repository.IActivationRepository
	clock       Clock
	cfg         TokenConfig
}

func NewTokenService(db *gorm.DB, runTx TxRunner, tokens repository.ITokenRepository, activations repository.IActivationRepository, clock Clock, cfg TokenConfig) ITokenService {
	return &TokenService{db: db, runTx: runTx, tokens: tokens, activations: activations, clock: clock, cfg: cfg}
}

func (s *TokenService) CreateToken(req *request.CreateTokenRequest) (*response.TokenCreateResponse, error) {
	if _, err := crypto.ParseSignatureType(req.SignatureType); err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}

	var resp *response.TokenCreateResponse
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		activation, err := s.activations.FindActivation(tx, req.ActivationId)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeActivationNotFound)
			}
			return err
		}
		if activation.ActivationStatus != domain.ActivationActive {
			return serviceerror.New(serviceerror.CodeActivationIncorrectState)
		}

		var tokenId string
		for i := 0; i < s.cfg.IdIterations; i++ {
			candidate, err := uuid.GenerateUUID()
			if err != nil {
				return err
			}
			_, err = s.tokens.FindToken(tx, candidate)
			if repository.IsNotFound(err) {
				tokenId = candidate
				break
			}
			if err != nil {
				return err
			}
		}
		if tokenId == "" {
			return serviceerror.New(serviceerror.CodeUnableToGenerateToken)
		}

		secretBytes, err := crypto.RandomBytes(16)
		if err != nil {
			return serviceerror.New(serviceerror.CodeGenericCryptographyError)
		}
		tokenSecret := base64.StdEncoding.EncodeToString(secretBytes)

		if _, err := s.tokens.Create(tx, &domain.Token{
			TokenId:          tokenId,
			TokenSecret:      tokenSecret,
			ActivationId:     activation.ActivationId,
			SignatureType:    req.SignatureType,
			TimestampCreated: &now,
		}); err != nil {
			return err
		}
		resp = &response.TokenCreateResponse{TokenId: tokenId, TokenSecret: tokenSecret}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *TokenService) ValidateToken(req *request.ValidateTokenRequest) (*response.TokenValidateResponse, error) {
	token, err := s.tokens.FindToken(s.db, req.TokenId)
	if err != nil {
		if repository.IsNotFound(err) {
			return &response.TokenValidateResponse{TokenValid: false}, nil
		}
		return nil, err
	}

	// Stale timestamps are rejected before any digest math.
	now := s.clock.Now().UnixMilli()
	if req.Timestamp < now-s.cfg.TimestampValidityMillis || req.Timestamp > now+s.cfg.TimestampValidityMillis {
		return &response.TokenValidateResponse{TokenValid: false}, nil
	}

	activation, err := s.activations.FindActivation(s.db, token.ActivationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return &response.TokenValidateResponse{TokenValid: false}, nil
		}
		return nil, err
	}
	if activation.ActivationStatus != domain.ActivationActive {
		return &response.TokenValidateResponse{
			TokenValid:       false,
			ActivationId:     activation.ActivationId,
			ActivationStatus: activation.ActivationStatus.String(),
		}, nil
	}

	nonce, err := base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	digest, err := base64.StdEncoding.DecodeString(req.TokenDigest)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
	}
	secret, err := base64.StdEncoding.DecodeString(token.TokenSecret)
	if err != nil {
		return nil, serviceerror.New(serviceerror.CodeGenericCryptographyError)
	}

	if !crypto.VerifyTokenDigest(secret, nonce, req.Timestamp, digest) {
		return &response.TokenValidateResponse{
			TokenValid:       false,
			ActivationId:     activation.ActivationId,
			ActivationStatus: activation.ActivationStatus.String(),
		}, nil
	}

	return &response.TokenValidateResponse{
		TokenValid:       true,
		ActivationId:     activation.ActivationId,
		ActivationStatus: activation.ActivationStatus.String(),
		UserId:           activation.UserId,
		ApplicationId:    activation.ApplicationId,
	}, nil
}

func (s *TokenService) RemoveToken(req *request.RemoveTokenRequest) (*response.TokenRemoveResponse, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		if _, err := s.tokens.FindToken(tx, req.TokenId); err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeTokenNotFound)
			}
			return err
		}
		return s.tokens.Delete(tx, req.TokenId)
	})
	if err != nil {
		return nil, err
	}
	return &response.TokenRemoveResponse{TokenId: req.TokenId, Removed: true}, nil
}
