package scope

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
)

type world struct {
	companyA  uuid.UUID
	companyB  uuid.UUID
	plants    []model.Plant
	equipment []model.Equipment
	calls     []model.MaintenanceCall
}

func newWorld() *world {
	w := &world{companyA: uuid.New(), companyB: uuid.New()}
	w.plants = []model.Plant{
		{ID: uuid.New(), CompanyID: w.companyA, Name: "Planta A (SP)"},
		{ID: uuid.New(), CompanyID: w.companyA, Name: "Planta B (RJ)"},
		{ID: uuid.New(), CompanyID: w.companyB, Name: "Unidade Curitiba"},
	}
	for i, plant := range w.plants {
		w.equipment = append(w.equipment, model.Equipment{ID: uuid.New(), PlantID: plant.ID})
		calls := i + 1
		for j := 0; j < calls; j++ {
			w.calls = append(w.calls, model.MaintenanceCall{ID: uuid.New(), PlantID: plant.ID})
		}
	}
	return w
}

func TestSystemAdministratorSeesEverything(t *testing.T) {
	w := newWorld()
	actor := model.User{ID: uuid.New(), Role: model.RoleSystemAdministrator}

	s := Resolve(actor, w.plants)
	if !s.All {
		t.Fatal("expected unrestricted scope")
	}
	if len(FilterPlants(s, w.plants)) != len(w.plants) {
		t.Fatal("expected all plants visible")
	}
	if len(FilterCalls(s, w.calls)) != len(w.calls) {
		t.Fatal("expected all calls visible")
	}
}

func TestMissingCompanyDeniesEverything(t *testing.T) {
	w := newWorld()
	actor := model.User{ID: uuid.New(), Role: model.RoleAdministrator}

	s := Resolve(actor, w.plants)
	if !s.Empty() {
		t.Fatal("actor without company must resolve to an empty scope")
	}
	if len(FilterEquipment(s, w.equipment)) != 0 || len(FilterCalls(s, w.calls)) != 0 {
		t.Fatal("empty scope must filter out every row")
	}
}

func TestAdministratorScopedToCompany(t *testing.T) {
	w := newWorld()
	actor := model.User{ID: uuid.New(), Role: model.RoleAdministrator, CompanyID: &w.companyA}

	s := Resolve(actor, w.plants)
	plants := FilterPlants(s, w.plants)
	if len(plants) != 2 {
		t.Fatalf("expected 2 company plants, got %d", len(plants))
	}
	for _, plant := range plants {
		if plant.CompanyID != w.companyA {
			t.Fatal("leaked a plant from another company")
		}
	}

	calls := FilterCalls(s, w.calls)
	// Plants of company A hold 1+2 calls in the fixture.
	if len(calls) != 3 {
		t.Fatalf("expected 3 company calls, got %d", len(calls))
	}
	if len(FilterEquipment(s, w.equipment)) != 2 {
		t.Fatal("expected exactly the company equipment")
	}
}

func TestAdminPlantaNarrowedToPlant(t *testing.T) {
	w := newWorld()
	plant := w.plants[1]
	actor := model.User{ID: uuid.New(), Role: model.RoleAdminPlanta, CompanyID: &w.companyA, PlantID: &plant.ID}

	s := Resolve(actor, w.plants)
	company := Resolve(model.User{ID: uuid.New(), Role: model.RoleAdministrator, CompanyID: &w.companyA}, w.plants)

	plantCalls := FilterCalls(s, w.calls)
	companyCalls := FilterCalls(company, w.calls)
	if len(plantCalls) >= len(companyCalls) {
		t.Fatal("plant scope must be a strict subset of the company scope")
	}
	for _, call := range plantCalls {
		if call.PlantID != plant.ID {
			t.Fatal("plant scope leaked a call from another plant")
		}
	}
	if len(FilterPlants(s, w.plants)) != 1 {
		t.Fatal("plant admin must see exactly one plant")
	}
}

func TestAdminPlantaForeignPlantDenied(t *testing.T) {
	w := newWorld()
	foreign := w.plants[2].ID // belongs to company B
	actor := model.User{ID: uuid.New(), Role: model.RoleAdminPlanta, CompanyID: &w.companyA, PlantID: &foreign}

	if s := Resolve(actor, w.plants); !s.Empty() {
		t.Fatal("plant outside the actor's company must resolve to an empty scope")
	}
}

func TestTecnicoSeesFullCompanyScope(t *testing.T) {
	w := newWorld()
	tech := model.User{ID: uuid.New(), Role: model.RoleTecnicoPcm, CompanyID: &w.companyA}
	admin := model.User{ID: uuid.New(), Role: model.RoleAdministrator, CompanyID: &w.companyA}

	techCalls := FilterCalls(Resolve(tech, w.plants), w.calls)
	adminCalls := FilterCalls(Resolve(admin, w.plants), w.calls)
	if len(techCalls) != len(adminCalls) {
		t.Fatal("technician visibility must match company scope")
	}
}
