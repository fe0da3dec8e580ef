package domain

import "time"

// RecoveryCodeStatus is the lifecycle state of a recovery code.
type RecoveryCodeStatus int

const (
	RecoveryCodeCreated RecoveryCodeStatus = 1
	RecoveryCodeActive  RecoveryCodeStatus = 2
	RecoveryCodeBlocked RecoveryCodeStatus = 3
	RecoveryCodeRevoked RecoveryCodeStatus = 4
)

func (s RecoveryCodeStatus) String() string {
	switch s {
	case RecoveryCodeCreated:
		return "CREATED"
	case RecoveryCodeActive:
		return "ACTIVE"
	case RecoveryCodeBlocked:
		return "BLOCKED"
	case RecoveryCodeRevoked:
		return "REVOKED"
	}
	return "REVOKED"
}

// RecoveryPukStatus is the state of a single PUK within a recovery code.
type RecoveryPukStatus int

const (
	RecoveryPukValid   RecoveryPukStatus = 1
	RecoveryPukUsed    RecoveryPukStatus = 2
	RecoveryPukInvalid RecoveryPukStatus = 3
)

func (s RecoveryPukStatus) String() string {
	switch s {
	case RecoveryPukValid:
		return "VALID"
	case RecoveryPukUsed:
		return "USED"
	}
	return "INVALID"
}

// RecoveryCode is a 20-character code a user can redeem, together with one
// of its PUKs, to activate a replacement device.
type RecoveryCode struct {
	Id            uint               `gorm:"primaryKey" json:"id"`
	ApplicationId uint               `gorm:"index;not null" json:"application_id"`
	UserId        string             `gorm:"size:255;index;not null" json:"user_id"`
	ActivationId  *string            `gorm:"size:37;index" json:"activation_id,omitempty"`
	RecoveryCode  string             `gorm:"size:255;not null;index" json:"recovery_code"`
	Status        RecoveryCodeStatus `gorm:"not null" json:"status"`

	FailedAttempts    int64 `gorm:"not null;default:0" json:"failed_attempts"`
	MaxFailedAttempts int64 `gorm:"not null;default:5" json:"max_failed_attempts"`

	TimestampCreated  *time.Time `gorm:"not null" json:"timestamp_created"`
	TimestampLastUsed *time.Time `json:"timestamp_last_used,omitempty"`

	Puks []RecoveryPuk `gorm:"foreignKey:RecoveryCodeId;constraint:OnDelete:CASCADE" json:"puks,omitempty"`
}

func (RecoveryCode) TableName() string { return "pa_recovery_code" }

// RecoveryPuk is one PUK slot of a recovery code. Only the HMAC digest of
// the PUK value is stored; the plaintext leaves the server exactly once.
type RecoveryPuk struct {
	Id                  uint              `gorm:"primaryKey" json:"id"`
	RecoveryCodeId      uint              `gorm:"index;not null" json:"recovery_code_id"`
	PukIndex            int64             `gorm:"not null" json:"puk_index"`
	PukHash             string            `gorm:"size:255;not null" json:"-"`
	Status              RecoveryPukStatus `gorm:"not null" json:"status"`
	TimestampLastChange *time.Time        `json:"timestamp_last_change,omitempty"`
}

func (RecoveryPuk) TableName() string { return "pa_recovery_puk" }

// RecoveryConfig holds per-application recovery switches.
type RecoveryConfig struct {
	Id                         uint `gorm:"primaryKey" json:"id"`
	ApplicationId              uint `gorm:"uniqueIndex;not null" json:"application_id"`
	ActivationRecoveryEnabled  bool `gorm:"not null;default:false" json:"activation_recovery_enabled"`
	RecoveryPostcardEnabled    bool `gorm:"not null;default:false" json:"recovery_postcard_enabled"`
	AllowMultipleRecoveryCodes bool `gorm:"not null;default:false" json:"allow_multiple_recovery_codes"`
}

func (RecoveryConfig) TableName() string { return "pa_recovery_config" }
