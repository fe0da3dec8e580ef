package domain

import "time"

// ActivationStatus is the lifecycle state of an activation. The numeric
// values are persisted; never renumber them.
type ActivationStatus int

const (
	ActivationCreated ActivationStatus = 1
	ActivationOtpUsed ActivationStatus = 2
	ActivationActive  ActivationStatus = 3
	ActivationBlocked ActivationStatus = 4
	ActivationRemoved ActivationStatus = 5
)

func (s ActivationStatus) String() string {
	switch s {
	case ActivationCreated:
		return "CREATED"
	case ActivationOtpUsed:
		return "OTP_USED"
	case ActivationActive:
		return "ACTIVE"
	case ActivationBlocked:
		return "BLOCKED"
	case ActivationRemoved:
		return "REMOVED"
	}
	return "REMOVED"
}

// KeyEncryptionMode selects how the server private key column is encoded.
type KeyEncryptionMode int

const (
	KeyEncryptionNone    KeyEncryptionMode = 0
	KeyEncryptionAESHMAC KeyEncryptionMode = 1
)

// BlockedReasonNotSpecified is stored when an activation is blocked without
// an explicit reason. BlockedReasonMaxFailedAttempts is stored when the
// failed attempt counter reaches its limit.
const (
	BlockedReasonNotSpecified      = "NOT_SPECIFIED"
	BlockedReasonMaxFailedAttempts = "MAX_FAILED_ATTEMPTS"
)

// Activation is the central entity: the cryptographic binding of one device
// to one user within an application.
type Activation struct {
	ActivationId    string `gorm:"size:37;primaryKey" json:"activation_id"`
	ActivationCode  string `gorm:"size:255;index" json:"activation_code"`
	UserId          string `gorm:"size:255;not null;index" json:"user_id"`
	ApplicationId   uint   `gorm:"index;not null" json:"application_id"`
	MasterKeyPairId uint   `gorm:"not null" json:"master_keypair_id"`

	ActivationName string `gorm:"size:255" json:"activation_name"`
	Extras         string `gorm:"size:255" json:"extras"`

	ServerPublicKeyBase64      string            `gorm:"size:255;not null" json:"-"`
	ServerPrivateKeyBase64     string            `gorm:"size:255;not null" json:"-"`
	ServerPrivateKeyEncryption KeyEncryptionMode `gorm:"not null;default:0" json:"-"`
	DevicePublicKeyBase64      string            `gorm:"size:255" json:"-"`

	Counter           int64            `gorm:"not null;default:0" json:"counter"`
	FailedAttempts    int64            `gorm:"not null;default:0" json:"failed_attempts"`
	MaxFailedAttempts int64            `gorm:"not null;default:5" json:"max_failed_attempts"`
	ActivationStatus  ActivationStatus `gorm:"not null;index" json:"activation_status"`
	BlockedReason     string           `gorm:"size:255" json:"blocked_reason"`

	// Protocol major version; nil until the device reveals it.
	Version *int64 `json:"version"`

	TimestampCreated          *time.Time `gorm:"not null" json:"timestamp_created"`
	TimestampLastUsed         *time.Time `gorm:"not null" json:"timestamp_last_used"`
	TimestampActivationExpire *time.Time `gorm:"not null" json:"timestamp_activation_expire"`

	Application   *Application   `gorm:"foreignKey:ApplicationId;references:Id" json:"application,omitempty"`
	MasterKeyPair *MasterKeyPair `gorm:"foreignKey:MasterKeyPairId;references:Id" json:"master_key_pair,omitempty"`
}

func (Activation) TableName() string { return "pa_activation" }

// ActivationHistory is an append-only log of activation status changes,
// written in the same transaction as the change itself.
type ActivationHistory struct {
	Id               uint             `gorm:"primaryKey" json:"id"`
	ActivationId     string           `gorm:"size:37;index;not null" json:"activation_id"`
	ActivationStatus ActivationStatus `gorm:"not null" json:"activation_status"`
	BlockedReason    string           `gorm:"size:255" json:"blocked_reason"`
	TimestampCreated *time.Time       `gorm:"not null" json:"timestamp_created"`
}

func (ActivationHistory) TableName() string { return "pa_activation_history" }

// SignatureAudit is an append-only record of one signature verification
// attempt, valid or not.
type SignatureAudit struct {
	Id                uint             `gorm:"primaryKey" json:"id"`
	ActivationId      string           `gorm:"size:37;index;not null" json:"activation_id"`
	UserId            string           `gorm:"size:255;index" json:"user_id"`
	ApplicationId     uint             `gorm:"index" json:"application_id"`
	ActivationCounter int64            `gorm:"not null" json:"activation_counter"`
	ActivationStatus  ActivationStatus `json:"activation_status"`
	SignatureType     string           `gorm:"size:255" json:"signature_type"`
	Signature         string           `gorm:"size:255" json:"signature"`
	DataHash          string           `gorm:"size:255" json:"data_hash"`
	Valid             bool             `gorm:"not null" json:"valid"`
	Note              string           `gorm:"size:255" json:"note"`
	TimestampCreated  *time.Time       `gorm:"not null;index" json:"timestamp_created"`
}

func (SignatureAudit) TableName() string { return "pa_signature_audit" }
