package services

import (
	"encoding/base64"

	"activation_server/crypto"
	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"
	"activation_server/serviceerror"

	"gorm.io/gorm"
)

type IApplicationService interface {
	CreateApplication(req *request.CreateApplicationRequest) (*response.CreateApplicationResponse, error)
	GetApplicationList() (*response.GetApplicationListResponse, error)
	GetApplicationDetail(applicationId uint) (*response.GetApplicationDetailResponse, error)
	CreateApplicationVersion(req *request.CreateApplicationVersionRequest) (*response.CreateApplicationVersionResponse, error)
	SupportApplicationVersion(versionId uint) (*response.SupportApplicationVersionResponse, error)
	UnsupportApplicationVersion(versionId uint) (*response.SupportApplicationVersionResponse, error)
}

type ApplicationService struct {
	db    *gorm.DB
	runTx TxRunner
	repo  repository.IApplicationRepository
	redis IRedisService
	clock Clock
}

func NewApplicationService(db *gorm.DB, runTx TxRunner, repo repository.IApplicationRepository, redis IRedisService, clock Clock) IApplicationService {
	return &ApplicationService{db: db, runTx: runTx, repo: repo, redis: redis, clock: clock}
}

// newClientCredential returns a random base64 credential string of the
// shape used for application keys and secrets.
func newClientCredential() (string, error) {
	raw, err := crypto.RandomBytes(16)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// CreateApplication creates the application together with its default
// version and its first master key pair, so activations can start
// immediately.
func (s *ApplicationService) CreateApplication(req *request.CreateApplicationRequest) (*response.CreateApplicationResponse, error) {
	var resp *response.CreateApplicationResponse
	err := s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		application, err := s.repo.Create(tx, &domain.Application{Name: req.ApplicationName, CreatedAt: &now})
		if err != nil {
			return err
		}

		applicationKey, err := newClientCredential()
		if err != nil {
			return err
		}
		applicationSecret, err := newClientCredential()
		if err != nil {
			return err
		}
		if _, err := s.repo.CreateVersion(tx, &domain.ApplicationVersion{
			ApplicationId:     application.Id,
			Name:              "default",
			ApplicationKey:    applicationKey,
			ApplicationSecret: applicationSecret,
			Supported:         true,
		}); err != nil {
			return err
		}

		keyPair, err := crypto.GenerateKeyPair()
		if err != nil {
			return serviceerror.New(serviceerror.CodeGenericCryptographyError)
		}
		if _, err := s.repo.CreateMasterKeyPair(tx, &domain.MasterKeyPair{
			ApplicationId:          application.Id,
			Name:                   req.ApplicationName + " default keypair",
			MasterKeyPublicBase64:  base64.StdEncoding.EncodeToString(crypto.PublicKeyToBytes(keyPair.PublicKey)),
			MasterKeyPrivateBase64: base64.StdEncoding.EncodeToString(crypto.PrivateKeyToBytes(keyPair.PrivateKey)),
			TimestampCreated:       &now,
		}); err != nil {
			return err
		}

		resp = &response.CreateApplicationResponse{
			ApplicationId:   application.Id,
			ApplicationName: application.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ApplicationService) GetApplicationList() (*response.GetApplicationListResponse, error) {
	applications, err := s.repo.List(s.db)
	if err != nil {
		return nil, err
	}
	resp := &response.GetApplicationListResponse{Applications: make([]response.ApplicationListItem, 0, len(applications))}
	for _, application := range applications {
		resp.Applications = append(resp.Applications, response.ApplicationListItem{
			ApplicationId:   application.Id,
			ApplicationName: application.Name,
		})
	}
	return resp, nil
}

func (s *ApplicationService) GetApplicationDetail(applicationId uint) (*response.GetApplicationDetailResponse, error) {
	if applicationId == 0 {
		return nil, serviceerror.New(serviceerror.CodeNoApplicationID)
	}
	application, err := s.repo.GetById(s.db, applicationId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
		}
		return nil, err
	}
	masterKeyPair, err := s.repo.FindCurrentMasterKeyPair(s.db, applicationId)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	versions, err := s.repo.ListVersions(s.db, applicationId)
	if err != nil {
		return nil, err
	}

	resp := &response.GetApplicationDetailResponse{
		ApplicationId:   application.Id,
		ApplicationName: application.Name,
		Versions:        make([]response.ApplicationVersionDetail, 0, len(versions)),
	}
	if masterKeyPair != nil {
		resp.MasterPublicKey = masterKeyPair.MasterKeyPublicBase64
	}
	for _, version := range versions {
		resp.Versions = append(resp.Versions, response.ApplicationVersionDetail{
			ApplicationVersionId:   version.Id,
			ApplicationVersionName: version.Name,
			ApplicationKey:         version.ApplicationKey,
			ApplicationSecret:      version.ApplicationSecret,
			Supported:              version.Supported,
		})
	}
	return resp, nil
}

func (s *ApplicationService) CreateApplicationVersion(req *request.CreateApplicationVersionRequest) (*response.CreateApplicationVersionResponse, error) {
	var resp *response.CreateApplicationVersionResponse
	err := s.runTx(func(tx *gorm.DB) error {
		if _, err := s.repo.GetById(tx, req.ApplicationId); err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeInvalidRequest)
			}
			return err
		}
		applicationKey, err := newClientCredential()
		if err != nil {
			return err
		}
		applicationSecret, err := newClientCredential()
		if err != nil {
			return err
		}
		version, err := s.repo.CreateVersion(tx, &domain.ApplicationVersion{
			ApplicationId:     req.ApplicationId,
			Name:              req.ApplicationVersionName,
			ApplicationKey:    applicationKey,
			ApplicationSecret: applicationSecret,
			Supported:         true,
		})
		if err != nil {
			return err
		}
		resp = &response.CreateApplicationVersionResponse{
			ApplicationVersionId:   version.Id,
			ApplicationVersionName: version.Name,
			ApplicationKey:         version.ApplicationKey,
			ApplicationSecret:      version.ApplicationSecret,
			Supported:              version.Supported,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ApplicationService) SupportApplicationVersion(versionId uint) (*response.SupportApplicationVersionResponse, error) {
	return s.setVersionSupport(versionId, true)
}

func (s *ApplicationService) UnsupportApplicationVersion(versionId uint) (*response.SupportApplicationVersionResponse, error) {
	return s.setVersionSupport(versionId, false)
}

func (s *ApplicationService) setVersionSupport(versionId uint, supported bool) (*response.SupportApplicationVersionResponse, error) {
	var resp *response.SupportApplicationVersionResponse
	err := s.runTx(func(tx *gorm.DB) error {
		version, err := s.repo.UpdateVersionSupport(tx, versionId, supported)
		if err != nil {
			if repository.IsNotFound(err) {
				return serviceerror.New(serviceerror.CodeInvalidRequest)
			}
			return err
		}
		// The credential cache holds the supported flag, drop the stale entry.
		if s.redis != nil {
			_ = s.redis.InvalidateApplicationVersion(version.ApplicationKey)
		}
		resp = &response.SupportApplicationVersionResponse{
			ApplicationVersionId: version.Id,
			Supported:            version.Supported,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
