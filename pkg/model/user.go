package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSystemAdministrator Role = "SYSTEM_ADMINISTRATOR"
	RoleAdministrator       Role = "ADMINISTRATOR"
	RoleAdminPlanta         Role = "ADMIN_PLANTA"
	RoleTecnicoPcm          Role = "TECNICO_PCM"
	RoleOperador            Role = "OPERADOR"
	RoleVisualizador        Role = "VISUALIZADOR"
)

// AllRoles lists every valid role, in privilege order.
func AllRoles() []Role {
	return []Role{
		RoleSystemAdministrator,
		RoleAdministrator,
		RoleAdminPlanta,
		RoleTecnicoPcm,
		RoleOperador,
		RoleVisualizador,
	}
}

// AdminTier reports whether the role may assign and cancel calls and approve
// closures on behalf of requesters.
func (r Role) AdminTier() bool {
	switch r {
	case RoleSystemAdministrator, RoleAdministrator, RoleAdminPlanta:
		return true
	default:
		return false
	}
}

func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Login        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Email        string
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(40);not null;index"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index"`
	Company      *Company   `gorm:"foreignKey:CompanyID"`
	PlantID      *uuid.UUID `gorm:"type:uuid"`
	TeamID       *uuid.UUID `gorm:"type:uuid"`
	// LegacyTags carries the pre-permission-table grant strings. Superseded by
	// the role/page table; kept for import compatibility.
	LegacyTags pq.StringArray `gorm:"type:text[]"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
