package services

import (
	"crypto/subtle"

	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"
	"activation_server/serviceerror"

	"github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
)

type IIntegrationService interface {
	CreateIntegration(req *request.CreateIntegrationRequest) (*response.CreateIntegrationResponse, error)
	GetIntegrationList() (*response.GetIntegrationListResponse, error)
	RemoveIntegration(id string) (*response.RemoveIntegrationResponse, error)
	// CheckCredentials authenticates one (clientToken, clientSecret) pair
	// against the integration table.
	CheckCredentials(clientToken, clientSecret string) bool

	CreateCallbackUrl(req *request.CreateCallbackUrlRequest) (*response.CreateCallbackUrlResponse, error)
	GetCallbackUrlList(applicationId uint) (*response.GetCallbackUrlListResponse, error)
	RemoveCallbackUrl(id string) (*response.RemoveCallbackUrlResponse, error)
}

type IntegrationService struct {
	db    *gorm.DB
	runTx TxRunner
	repo  repository.IIntegrationRepository
	clock Clock
}

func NewIntegrationService(db *gorm.DB, runTx TxRunner, repo repository.IIntegrationRepository, clock Clock) IIntegrationService {
	return &IntegrationService{db: db, runTx: runTx, repo: repo, clock: clock}
}

func (s *IntegrationService) CreateIntegration(req *request.CreateIntegrationRequest) (*response.CreateIntegrationResponse, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	clientToken, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	clientSecret, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	var resp *response.CreateIntegrationResponse
	err = s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		integration, err := s.repo.Create(tx, &domain.Integration{
			Id:           id,
			Name:         req.Name,
			ClientToken:  clientToken,
			ClientSecret: clientSecret,
			CreatedAt:    &now,
		})
		if err != nil {
			return err
		}
		resp = &response.CreateIntegrationResponse{
			Id:           integration.Id,
			Name:         integration.Name,
			ClientToken:  integration.ClientToken,
			ClientSecret: integration.ClientSecret,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *IntegrationService) GetIntegrationList() (*response.GetIntegrationListResponse, error) {
	integrations, err := s.repo.List(s.db)
	if err != nil {
		return nil, err
	}
	resp := &response.GetIntegrationListResponse{Integrations: make([]response.IntegrationListItem, 0, len(integrations))}
	for _, integration := range integrations {
		resp.Integrations = append(resp.Integrations, response.IntegrationListItem{
			Id:          integration.Id,
			Name:        integration.Name,
			ClientToken: integration.ClientToken,
			CreatedAt:   *integration.CreatedAt,
		})
	}
	return resp, nil
}

func (s *IntegrationService) RemoveIntegration(id string) (*response.RemoveIntegrationResponse, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		return s.repo.Delete(tx, id)
	})
	if err != nil {
		return nil, err
	}
	return &response.RemoveIntegrationResponse{Id: id, Removed: true}, nil
}

func (s *IntegrationService) CheckCredentials(clientToken, clientSecret string) bool {
	integration, err := s.repo.FindByClientToken(s.db, clientToken)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(integration.ClientSecret), []byte(clientSecret)) == 1
}

func (s *IntegrationService) CreateCallbackUrl(req *request.CreateCallbackUrlRequest) (*response.CreateCallbackUrlResponse, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	var resp *response.CreateCallbackUrlResponse
	err = s.runTx(func(tx *gorm.DB) error {
		now := s.clock.Now()
		callback, err := s.repo.CreateCallbackUrl(tx, &domain.CallbackUrl{
			Id:            id,
			ApplicationId: req.ApplicationId,
			Name:          req.Name,
			CallbackUrl:   req.CallbackUrl,
			CreatedAt:     &now,
		})
		if err != nil {
			return err
		}
		resp = &response.CreateCallbackUrlResponse{
			Id:            callback.Id,
			ApplicationId: callback.ApplicationId,
			Name:          callback.Name,
			CallbackUrl:   callback.CallbackUrl,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *IntegrationService) GetCallbackUrlList(applicationId uint) (*response.GetCallbackUrlListResponse, error) {
	if applicationId == 0 {
		return nil, serviceerror.New(serviceerror.CodeNoApplicationID)
	}
	callbacks, err := s.repo.ListCallbackUrls(s.db, applicationId)
	if err != nil {
		return nil, err
	}
	resp := &response.GetCallbackUrlListResponse{CallbackUrls: make([]response.CallbackUrlListItem, 0, len(callbacks))}
	for _, callback := range callbacks {
		resp.CallbackUrls = append(resp.CallbackUrls, response.CallbackUrlListItem{
			Id:            callback.Id,
			ApplicationId: callback.ApplicationId,
			Name:          callback.Name,
			CallbackUrl:   callback.CallbackUrl,
		})
	}
	return resp, nil
}

func (s *IntegrationService) RemoveCallbackUrl(id string) (*response.RemoveCallbackUrlResponse, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		return s.repo.DeleteCallbackUrl(tx, id)
	})
	if err != nil {
		return nil, err
	}
	return &response.RemoveCallbackUrlResponse{Id: id, Removed: true}, nil
}
