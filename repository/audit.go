package repository

import (
	"time"

	"activation_server/domain"

	"gorm.io/gorm"
)

type IAuditRepository interface {
	CreateSignatureAudit(db *gorm.DB, entity *domain.SignatureAudit) error
	ListSignatureAudit(db *gorm.DB, userId string, applicationId uint, from, to time.Time) ([]domain.SignatureAudit, error)
	CreateActivationHistory(db *gorm.DB, entity *domain.ActivationHistory) error
	ListActivationHistory(db *gorm.DB, activationId string, from, to time.Time) ([]domain.ActivationHistory, error)
}

type AuditRepository struct {
}

func NewAuditRepository() IAuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) CreateSignatureAudit(db *gorm.DB, entity *domain.SignatureAudit) error {
	return db.Create(entity).Error
}

func (r *AuditRepository) ListSignatureAudit(db *gorm.DB, userId string, applicationId uint, from, to time.Time) ([]domain.SignatureAudit, error) {
	var records []domain.SignatureAudit
	query := db.Where("user_id = ? AND timestamp_created >= ? AND timestamp_created <= ?", userId, from, to)
	if applicationId != 0 {
		query = query.Where("application_id = ?", applicationId)
	}
	err := query.Order("timestamp_created").Find(&records).Error
	return records, err
}

func (r *AuditRepository) CreateActivationHistory(db *gorm.DB, entity *domain.ActivationHistory) error {
	return db.Create(entity).Error
}

func (r *AuditRepository) ListActivationHistory(db *gorm.DB, activationId string, from, to time.Time) ([]domain.ActivationHistory, error) {
	var records []domain.ActivationHistory
	err := db.Where("activation_id = ? AND timestamp_created >= ? AND timestamp_created <= ?", activationId, from, to).
		Order("timestamp_created").Find(&records).Error
	return records, err
}
