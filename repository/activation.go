package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"activation_server/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IActivationRepository interface {
	Create(db *gorm.DB, entity *domain.Activation) (*domain.Activation, error)
	Update(db *gorm.DB, entity *domain.Activation) error
	FindActivation(db *gorm.DB, activationId string) (*domain.Activation, error)
	// FindActivationForUpdate loads the row under an exclusive lock; every
	// read-for-mutate must go through it.
	FindActivationForUpdate(db *gorm.DB, activationId string) (*domain.Activation, error)
	FindByUserId(db *gorm.DB, userId string) ([]domain.Activation, error)
	FindByApplicationIdAndUserId(db *gorm.DB, applicationId uint, userId string) ([]domain.Activation, error)
	// FindCreatedActivation resolves an activation code to a pending,
	// unexpired activation of the application.
	FindCreatedActivation(db *gorm.DB, applicationId uint, activationCode string, states []domain.ActivationStatus, now time.Time) (*domain.Activation, error)
}

type ActivationRepository struct {
}

func NewActivationRepository() IActivationRepository {
	return &ActivationRepository{}
}

func (r *ActivationRepository) Create(db *gorm.DB, entity *domain.Activation) (*domain.Activation, error) {
	return entity, db.Create(entity).Error
}

func (r *ActivationRepository) Update(db *gorm.DB, entity *domain.Activation) error {
	return db.Save(entity).Error
}

func (r *ActivationRepository) FindActivation(db *gorm.DB, activationId string) (*domain.Activation, error) {
	var activation domain.Activation
	err := db.Where("activation_id = ?", activationId).First(&activation).Error
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

func (r *ActivationRepository) FindActivationForUpdate(db *gorm.DB, activationId string) (*domain.Activation, error) {
	var activation domain.Activation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("activation_id = ?", activationId).
		First(&activation).Error
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

func (r *ActivationRepository) FindByUserId(db *gorm.DB, userId string) ([]domain.Activation, error) {
	var activations []domain.Activation
	err := db.Where("user_id = ?", userId).Order("timestamp_created").Find(&activations).Error
	return activations, err
}

func (r *ActivationRepository) FindByApplicationIdAndUserId(db *gorm.DB, applicationId uint, userId string) ([]domain.Activation, error) {
	var activations []domain.Activation
	err := db.Where("application_id = ? AND user_id = ?", applicationId, userId).
		Order("timestamp_created").Find(&activations).Error
	return activations, err
}

func (r *ActivationRepository) FindCreatedActivation(db *gorm.DB, applicationId uint, activationCode string, states []domain.ActivationStatus, now time.Time) (*domain.Activation, error) {
	var activation domain.Activation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ? AND activation_code = ? AND activation_status IN ? AND timestamp_activation_expire > ?",
			applicationId, activationCode, states, now).
		First(&activation).Error
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

// SetLockTimeout bounds row-lock waits for the current transaction.
func SetLockTimeout(db *gorm.DB, millis int) error {
	return db.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", millis)).Error
}

// IsNotFound reports whether err is the record-not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsLockTimeout reports whether err is a lock-wait timeout, which callers
// surface as the transient CONCURRENCY code.
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "55P03") || strings.Contains(msg, "lock timeout")
}
