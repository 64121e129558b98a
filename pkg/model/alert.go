package model

import (
	"time"

	"github.com/google/uuid"
)

// Well-known alert metrics and conditions. Both are user-extensible, so the
// columns stay plain strings and these constants are just the seeded set.
const (
	MetricVibration   = "VIBRATION"
	MetricTemperature = "TEMPERATURE"
	MetricPressure    = "PRESSURE"
)

type AlertCondition string

const (
	ConditionGreaterThan  AlertCondition = "GREATER_THAN"
	ConditionLessThan     AlertCondition = "LESS_THAN"
	ConditionEqualTo      AlertCondition = "EQUAL_TO"
	ConditionNotEqualTo   AlertCondition = "NOT_EQUAL_TO"
	ConditionOutsideRange AlertCondition = "OUTSIDE_RANGE"
)

// AlertRule documents the policy that opens automatic calls when a reading
// crosses the threshold. ThresholdUpper is only meaningful for OUTSIDE_RANGE.
type AlertRule struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EquipmentID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Equipment      *Equipment `gorm:"foreignKey:EquipmentID"`
	Metric         string     `gorm:"not null"`
	Condition      AlertCondition `gorm:"type:varchar(40);not null"`
	Threshold      float64
	ThresholdUpper *float64
	Description    string
	IsActive       bool `gorm:"default:true;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
