package repository

import (
	"activation_server/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IRecoveryRepository interface {
	CreateCode(db *gorm.DB, entity *domain.RecoveryCode) (*domain.RecoveryCode, error)
	UpdateCode(db *gorm.DB, entity *domain.RecoveryCode) error
	UpdatePuk(db *gorm.DB, entity *domain.RecoveryPuk) error
	// FindCodeForUpdate loads a recovery code with its PUKs under an
	// exclusive lock on the code row.
	FindCodeForUpdate(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error)
	FindCodeByValue(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error)
	FindCodeById(db *gorm.DB, id uint) (*domain.RecoveryCode, error)
	FindCodesByUser(db *gorm.DB, applicationId uint, userId string) ([]domain.RecoveryCode, error)
	FindCodesByActivation(db *gorm.DB, activationId string) ([]domain.RecoveryCode, error)

	FindConfig(db *gorm.DB, applicationId uint) (*domain.RecoveryConfig, error)
	SaveConfig(db *gorm.DB, entity *domain.RecoveryConfig) error
}

type RecoveryRepository struct {
}

func NewRecoveryRepository() IRecoveryRepository {
	return &RecoveryRepository{}
}

func (r *RecoveryRepository) CreateCode(db *gorm.DB, entity *domain.RecoveryCode) (*domain.RecoveryCode, error) {
	return entity, db.Create(entity).Error
}

func (r *RecoveryRepository) UpdateCode(db *gorm.DB, entity *domain.RecoveryCode) error {
	return db.Omit("Puks").Save(entity).Error
}

func (r *RecoveryRepository) UpdatePuk(db *gorm.DB, entity *domain.RecoveryPuk) error {
	return db.Save(entity).Error
}

func (r *RecoveryRepository) FindCodeForUpdate(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error) {
	var code domain.RecoveryCode
	err := db.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}).
		Where("application_id = ? AND recovery_code = ?", applicationId, recoveryCode).
		First(&code).Error
	if err != nil {
		return nil, err
	}
	if err := db.Where("recovery_code_id = ?", code.Id).Order("puk_index").Find(&code.Puks).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *RecoveryRepository) FindCodeByValue(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error) {
	var code domain.RecoveryCode
	err := db.Preload("Puks", func(db *gorm.DB) *gorm.DB { return db.Order("puk_index") }).
		Where("application_id = ? AND recovery_code = ?", applicationId, recoveryCode).
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *RecoveryRepository) FindCodeById(db *gorm.DB, id uint) (*domain.RecoveryCode, error) {
	var code domain.RecoveryCode
	err := db.Preload("Puks", func(db *gorm.DB) *gorm.DB { return db.Order("puk_index") }).
		First(&code, id).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *RecoveryRepository) FindCodesByUser(db *gorm.DB, applicationId uint, userId string) ([]domain.RecoveryCode, error) {
	var codes []domain.RecoveryCode
	err := db.Preload("Puks", func(db *gorm.DB) *gorm.DB { return db.Order("puk_index") }).
		Where("application_id = ? AND user_id = ?", applicationId, userId).
		Order("id").Find(&codes).Error
	return codes, err
}

func (r *RecoveryRepository) FindCodesByActivation(db *gorm.DB, activationId string) ([]domain.RecoveryCode, error) {
	var codes []domain.RecoveryCode
	err := db.Preload("Puks", func(db *gorm.DB) *gorm.DB { return db.Order("puk_index") }).
		Where("activation_id = ?", activationId).
		Order("id").Find(&codes).Error
	return codes, err
}

func (r *RecoveryRepository) FindConfig(db *gorm.DB, applicationId uint) (*domain.RecoveryConfig, error) {
	var cfg domain.RecoveryConfig
	err := db.Where("application_id = ?", applicationId).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *RecoveryRepository) SaveConfig(db *gorm.DB, entity *domain.RecoveryConfig) error {
	return db.Save(entity).Error
}
