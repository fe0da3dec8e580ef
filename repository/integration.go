package repository

import (
	"activation_server/domain"

	"gorm.io/gorm"
)

type IIntegrationRepository interface {
	Create(db *gorm.DB, entity *domain.Integration) (*domain.Integration, error)
	List(db *gorm.DB) ([]domain.Integration, error)
	FindByClientToken(db *gorm.DB, clientToken string) (*domain.Integration, error)
	Delete(db *gorm.DB, id string) error

	CreateCallbackUrl(db *gorm.DB, entity *domain.CallbackUrl) (*domain.CallbackUrl, error)
	ListCallbackUrls(db *gorm.DB, applicationId uint) ([]domain.CallbackUrl, error)
	DeleteCallbackUrl(db *gorm.DB, id string) error
}

type IntegrationRepository struct {
}

func NewIntegrationRepository() IIntegrationRepository {
	return &IntegrationRepository{}
}

func (r *IntegrationRepository) Create(db *gorm.DB, entity *domain.Integration) (*domain.Integration, error) {
	return entity, db.Create(entity).Error
}

func (r *IntegrationRepository) List(db *gorm.DB) ([]domain.Integration, error) {
	var integrations []domain.Integration
	err := db.Order("created_at").Find(&integrations).Error
	return integrations, err
}

func (r *IntegrationRepository) FindByClientToken(db *gorm.DB, clientToken string) (*domain.Integration, error) {
	var integration domain.Integration
	err := db.Where("client_token = ?", clientToken).First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *IntegrationRepository) Delete(db *gorm.DB, id string) error {
	return db.Where("id = ?", id).Delete(&domain.Integration{}).Error
}

func (r *IntegrationRepository) CreateCallbackUrl(db *gorm.DB, entity *domain.CallbackUrl) (*domain.CallbackUrl, error) {
	return entity, db.Create(entity).Error
}

func (r *IntegrationRepository) ListCallbackUrls(db *gorm.DB, applicationId uint) ([]domain.CallbackUrl, error) {
	var callbacks []domain.CallbackUrl
	err := db.Where("application_id = ?", applicationId).Order("created_at").Find(&callbacks).Error
	return callbacks, err
}

func (r *IntegrationRepository) DeleteCallbackUrl(db *gorm.DB, id string) error {
	return db.Where("id = ?", id).Delete(&domain.CallbackUrl{}).Error
}
