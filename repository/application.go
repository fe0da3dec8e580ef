package repository

import (
	"activation_server/domain"

	"gorm.io/gorm"
)

type IApplicationRepository interface {
	Create(db *gorm.DB, entity *domain.Application) (*domain.Application, error)
	List(db *gorm.DB) ([]domain.Application, error)
	GetById(db *gorm.DB, id uint) (*domain.Application, error)
	GetByName(db *gorm.DB, name string) (*domain.Application, error)

	CreateVersion(db *gorm.DB, entity *domain.ApplicationVersion) (*domain.ApplicationVersion, error)
	ListVersions(db *gorm.DB, applicationId uint) ([]domain.ApplicationVersion, error)
	GetVersionByApplicationKey(db *gorm.DB, applicationKey string) (*domain.ApplicationVersion, error)
	UpdateVersionSupport(db *gorm.DB, versionId uint, supported bool) (*domain.ApplicationVersion, error)

	CreateMasterKeyPair(db *gorm.DB, entity *domain.MasterKeyPair) (*domain.MasterKeyPair, error)
	// FindCurrentMasterKeyPair returns the newest master key pair of the
	// application.
	FindCurrentMasterKeyPair(db *gorm.DB, applicationId uint) (*domain.MasterKeyPair, error)
}

type ApplicationRepository struct {
}

func NewApplicationRepository() IApplicationRepository {
	return &ApplicationRepository{}
}

func (r *ApplicationRepository) Create(db *gorm.DB, entity *domain.Application) (*domain.Application, error) {
	return entity, db.Create(entity).Error
}

func (r *ApplicationRepository) List(db *gorm.DB) ([]domain.Application, error) {
	var applications []domain.Application
	err := db.Order("id").Find(&applications).Error
	return applications, err
}

func (r *ApplicationRepository) GetById(db *gorm.DB, id uint) (*domain.Application, error) {
	var application domain.Application
	err := db.First(&application, id).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepository) GetByName(db *gorm.DB, name string) (*domain.Application, error) {
	var application domain.Application
	err := db.Where("name = ?", name).First(&application).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepository) CreateVersion(db *gorm.DB, entity *domain.ApplicationVersion) (*domain.ApplicationVersion, error) {
	return entity, db.Create(entity).Error
}

func (r *ApplicationRepository) ListVersions(db *gorm.DB, applicationId uint) ([]domain.ApplicationVersion, error) {
	var versions []domain.ApplicationVersion
	err := db.Where("application_id = ?", applicationId).Order("id").Find(&versions).Error
	return versions, err
}

func (r *ApplicationRepository) GetVersionByApplicationKey(db *gorm.DB, applicationKey string) (*domain.ApplicationVersion, error) {
	var version domain.ApplicationVersion
	err := db.Where("application_key = ?", applicationKey).First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *ApplicationRepository) UpdateVersionSupport(db *gorm.DB, versionId uint, supported bool) (*domain.ApplicationVersion, error) {
	var version domain.ApplicationVersion
	if err := db.First(&version, versionId).Error; err != nil {
		return nil, err
	}
	version.Supported = supported
	if err := db.Save(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *ApplicationRepository) CreateMasterKeyPair(db *gorm.DB, entity *domain.MasterKeyPair) (*domain.MasterKeyPair, error) {
	return entity, db.Create(entity).Error
}

func (r *ApplicationRepository) FindCurrentMasterKeyPair(db *gorm.DB, applicationId uint) (*domain.MasterKeyPair, error) {
	var keyPair domain.MasterKeyPair
	err := db.Where("application_id = ?", applicationId).
		Order("timestamp_created DESC").
		First(&keyPair).Error
	if err != nil {
		return nil, err
	}
	return &keyPair, nil
}
