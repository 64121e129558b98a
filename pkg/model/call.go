package model

import (
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallOpen             CallStatus = "ABERTO"
	CallInProgress       CallStatus = "EM_ANDAMENTO"
	CallAwaitingApproval CallStatus = "AGUARDANDO_APROVACAO"
	CallClosed           CallStatus = "ENCERRADO"
	CallCancelled        CallStatus = "CANCELADO"
)

// Terminal reports whether no further transition may leave the status.
func (s CallStatus) Terminal() bool {
	return s == CallClosed || s == CallCancelled
}

func (s CallStatus) Valid() bool {
	switch s {
	case CallOpen, CallInProgress, CallAwaitingApproval, CallClosed, CallCancelled:
		return true
	default:
		return false
	}
}

type CallPriority string

const (
	PriorityCritico CallPriority = "CRITICO"
	PriorityAlto    CallPriority = "ALTO"
	PriorityMedio   CallPriority = "MEDIO"
	PriorityBaixo   CallPriority = "BAIXO"
)

func (p CallPriority) Valid() bool {
	switch p {
	case PriorityCritico, PriorityAlto, PriorityMedio, PriorityBaixo:
		return true
	default:
		return false
	}
}

type CallSource string

const (
	SourceManual     CallSource = "MANUAL"
	SourceAutomatico CallSource = "AUTOMATICO"
)

// MaintenanceCategory classifies a call for the preventive-vs-corrective
// split. An explicit enum, never inferred from the problem-type label.
type MaintenanceCategory string

const (
	CategoryPreventiva MaintenanceCategory = "PREVENTIVA"
	CategoryCorretiva  MaintenanceCategory = "CORRETIVA"
)

// MaintenanceCall is a work request against one piece of equipment, driven
// through the lifecycle engine until Encerrado or Cancelado. PlantID is
// denormalized from the equipment so scope filtering never needs a join.
// Version guards against lost updates between concurrent actors.
type MaintenanceCall struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EquipmentID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Equipment   *Equipment `gorm:"foreignKey:EquipmentID"`
	PlantID     uuid.UUID  `gorm:"type:uuid;not null;index"`

	Status      CallStatus          `gorm:"type:varchar(40);default:'ABERTO';index"`
	Priority    CallPriority        `gorm:"type:varchar(20);not null"`
	Description string              `gorm:"not null"`
	ProblemType string              `gorm:"index"`
	Category    MaintenanceCategory `gorm:"type:varchar(20);default:'CORRETIVA'"`
	Source      CallSource          `gorm:"type:varchar(20);default:'MANUAL'"`

	RequesterID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ResponsibleID *uuid.UUID `gorm:"type:uuid;index"`
	Responsible   *User      `gorm:"foreignKey:ResponsibleID"`

	OpenedAt   time.Time `gorm:"not null"`
	AssignedAt *time.Time
	ResolvedAt *time.Time
	ApprovedAt *time.Time
	ClosedAt   *time.Time

	Version int `gorm:"not null;default:1"`

	Events []CallEvent `gorm:"foreignKey:CallID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastEvent returns the most recent event, or nil for a call with an empty
// log. Events are kept ordered by Sequence.
func (c *MaintenanceCall) LastEvent() *CallEvent {
	if len(c.Events) == 0 {
		return nil
	}
	return &c.Events[len(c.Events)-1]
}

// CallEvent is one append-only entry of a call's audit log. Immutable once
// written; Sequence is 1-based and dense per call.
type CallEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CallID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_call_event_seq"`
	Sequence  int        `gorm:"not null;uniqueIndex:idx_call_event_seq"`
	Status    CallStatus `gorm:"type:varchar(40);not null"`
	Timestamp time.Time  `gorm:"not null"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null"`
	Notes     string
}
