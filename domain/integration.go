package domain

import "time"

// Integration is a set of server-to-server credentials. When restricted
// access is enabled, every REST call must authenticate with a client token
// and secret from this table.
type Integration struct {
	Id           string     `gorm:"size:37;primaryKey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	ClientToken  string     `gorm:"size:37;not null;uniqueIndex" json:"client_token"`
	ClientSecret string     `gorm:"size:37;not null" json:"-"`
	CreatedAt    *time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Integration) TableName() string { return "pa_integration" }

// CallbackUrl is a webhook registration. Every activation status change of
// the owning application is POSTed to the URL.
type CallbackUrl struct {
	Id            string     `gorm:"size:37;primaryKey" json:"id"`
	ApplicationId uint       `gorm:"index;not null" json:"application_id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	CallbackUrl   string     `gorm:"size:1024;not null" json:"callback_url"`
	CreatedAt     *time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CallbackUrl) TableName() string { return "pa_application_callback" }
