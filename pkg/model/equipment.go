package model

import (
	"time"

	"github.com/google/uuid"
)

type EquipmentType string

const (
	EquipmentExtrusora     EquipmentType = "EXTRUSORA"
	EquipmentRebobinadeira EquipmentType = "REBOBINADEIRA"
	EquipmentImpressora    EquipmentType = "IMPRESSORA"
	EquipmentCorteSolda    EquipmentType = "CORTE_SOLDA"
)

// Equipment belongs to exactly one plant. The performance snapshot fields are
// maintained by planning, not derived from the failure history.
type Equipment struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Plant   *Plant    `gorm:"foreignKey:PlantID"`
	Name    string    `gorm:"not null"`
	Type    EquipmentType `gorm:"type:varchar(40);not null"`
	Line    string

	AvailabilityPct float64
	MTTRHours       float64 `gorm:"column:mttr_hours"`
	MTBFHours       float64 `gorm:"column:mtbf_hours"`

	FailureHistory []FailureRecord `gorm:"foreignKey:EquipmentID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FailureRecord is append-only; records are never updated or removed.
type FailureRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EquipmentID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Date          time.Time `gorm:"not null"`
	Description   string
	DowntimeHours float64
	CreatedAt     time.Time `gorm:"index"`
}
