// Package scope computes the subset of plants, equipment and calls an actor
// may see. Visibility is a superset of actionability: per-command eligibility
// is enforced by the lifecycle engine, never by hiding rows here.
package scope

import (
	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
)

// Scope is the resolved visibility of one actor. All short-circuits every
// filter; otherwise PlantIDs is the exact allow-list. An empty non-All scope
// is the fail-safe deny for actors without company context.
type Scope struct {
	All      bool
	PlantIDs []uuid.UUID
}

// Resolve applies the visibility rules in order: SystemAdministrator sees
// everything; an actor without a company sees nothing; AdminPlanta with a
// plant is narrowed to that single plant; every other role sees the whole
// company.
func Resolve(actor model.User, plants []model.Plant) Scope {
	if actor.Role == model.RoleSystemAdministrator {
		return Scope{All: true}
	}
	if actor.CompanyID == nil {
		return Scope{}
	}

	if actor.Role == model.RoleAdminPlanta && actor.PlantID != nil {
		for _, plant := range plants {
			if plant.ID == *actor.PlantID && plant.CompanyID == *actor.CompanyID {
				return Scope{PlantIDs: []uuid.UUID{plant.ID}}
			}
		}
		return Scope{}
	}

	ids := make([]uuid.UUID, 0, len(plants))
	for _, plant := range plants {
		if plant.CompanyID == *actor.CompanyID {
			ids = append(ids, plant.ID)
		}
	}
	return Scope{PlantIDs: ids}
}

// AllowsPlant reports whether the plant is visible in this scope.
func (s Scope) AllowsPlant(plantID uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, id := range s.PlantIDs {
		if id == plantID {
			return true
		}
	}
	return false
}

// Empty reports whether the scope denies everything.
func (s Scope) Empty() bool {
	return !s.All && len(s.PlantIDs) == 0
}

// FilterPlants returns the plants visible in the scope, preserving order.
func FilterPlants(s Scope, plants []model.Plant) []model.Plant {
	if s.All {
		return plants
	}
	out := make([]model.Plant, 0, len(plants))
	for _, plant := range plants {
		if s.AllowsPlant(plant.ID) {
			out = append(out, plant)
		}
	}
	return out
}

// FilterEquipment returns the equipment whose plant is visible.
func FilterEquipment(s Scope, equipment []model.Equipment) []model.Equipment {
	if s.All {
		return equipment
	}
	out := make([]model.Equipment, 0, len(equipment))
	for _, eq := range equipment {
		if s.AllowsPlant(eq.PlantID) {
			out = append(out, eq)
		}
	}
	return out
}

// FilterCalls returns the calls whose plant is visible.
func FilterCalls(s Scope, calls []model.MaintenanceCall) []model.MaintenanceCall {
	if s.All {
		return calls
	}
	out := make([]model.MaintenanceCall, 0, len(calls))
	for _, call := range calls {
		if s.AllowsPlant(call.PlantID) {
			out = append(out, call)
		}
	}
	return out
}
