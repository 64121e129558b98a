package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the root of the tenancy hierarchy. Companies are never deleted
// once plants or users reference them.
type Company struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name          string    `gorm:"uniqueIndex;not null"`
	Region        string
	Administrator string
	Phone         string
	Plants        []Plant `gorm:"foreignKey:CompanyID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Plant belongs to exactly one company.
type Plant struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Company   *Company  `gorm:"foreignKey:CompanyID"`
	Code      string    `gorm:"not null"`
	Name      string    `gorm:"not null"`
	TaxID     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Team is flat, not hierarchical. A user optionally belongs to one team.
type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
