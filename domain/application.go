package domain

import "time"

// Application is a tenant of the server. Each application owns a set of
// versions (client credentials) and a sequence of master key pairs.
type Application struct {
	Id        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt *time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Versions       []ApplicationVersion `gorm:"foreignKey:ApplicationId;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	MasterKeyPairs []MasterKeyPair      `gorm:"foreignKey:ApplicationId;constraint:OnDelete:CASCADE" json:"master_key_pairs,omitempty"`
}

func (Application) TableName() string { return "pa_application" }

// ApplicationVersion carries the client credentials of one released version
// of an application. ApplicationKey identifies the version on the wire,
// ApplicationSecret enters signature computation.
type ApplicationVersion struct {
	Id                uint   `gorm:"primaryKey" json:"id"`
	ApplicationId     uint   `gorm:"index;not null" json:"application_id"`
	Name              string `gorm:"size:255;not null" json:"name"`
	ApplicationKey    string `gorm:"size:255;not null;uniqueIndex" json:"application_key"`
	ApplicationSecret string `gorm:"size:255;not null" json:"application_secret"`
	Supported         bool   `gorm:"not null;default:true" json:"supported"`

	Application *Application `gorm:"foreignKey:ApplicationId;references:Id" json:"application,omitempty"`
}

func (ApplicationVersion) TableName() string { return "pa_application_version" }

// MasterKeyPair is an application-scoped long-lived EC key pair. The private
// half signs activation codes; the public half ships with the mobile client.
// Rows are immutable after creation; the newest row is the current pair.
type MasterKeyPair struct {
	Id                     uint       `gorm:"primaryKey" json:"id"`
	ApplicationId          uint       `gorm:"index;not null" json:"application_id"`
	Name                   string     `gorm:"size:255" json:"name"`
	MasterKeyPublicBase64  string     `gorm:"size:255;not null" json:"master_key_public_base64"`
	MasterKeyPrivateBase64 string     `gorm:"size:255;not null" json:"-"`
	TimestampCreated       *time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"timestamp_created"`

	Application *Application `gorm:"foreignKey:ApplicationId;references:Id" json:"application,omitempty"`
}

func (MasterKeyPair) TableName() string { return "pa_master_keypair" }
