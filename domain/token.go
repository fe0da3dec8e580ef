package domain

import "time"

// Token is a short-lived credential derived from an activation, used for
// lightweight request authentication without a full signature.
type Token struct {
	TokenId          string     `gorm:"size:37;primaryKey" json:"token_id"`
	TokenSecret      string     `gorm:"size:255;not null" json:"-"`
	ActivationId     string     `gorm:"size:37;index;not null" json:"activation_id"`
	SignatureType    string     `gorm:"size:255" json:"signature_type"`
	TimestampCreated *time.Time `gorm:"not null" json:"timestamp_created"`

	Activation *Activation `gorm:"foreignKey:ActivationId;references:ActivationId" json:"activation,omitempty"`
}

func (Token) TableName() string { return "pa_token" }
