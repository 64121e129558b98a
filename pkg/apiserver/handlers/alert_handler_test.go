package handlers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
)

func TestRuleWithinScopeHidesForeignCompanyRule(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()
	plantA := model.Plant{ID: uuid.New(), CompanyID: companyA}
	plantB := model.Plant{ID: uuid.New(), CompanyID: companyB}
	plants := []model.Plant{plantA, plantB}

	admin := model.User{ID: uuid.New(), Role: model.RoleAdministrator, CompanyID: &companyA}
	sc := scope.Resolve(admin, plants)

	ownRule := &model.AlertRule{
		ID:        uuid.New(),
		Equipment: &model.Equipment{ID: uuid.New(), PlantID: plantA.ID},
	}
	foreignRule := &model.AlertRule{
		ID:        uuid.New(),
		Equipment: &model.Equipment{ID: uuid.New(), PlantID: plantB.ID},
	}

	if !ruleWithinScope(sc, ownRule) {
		t.Fatal("rule on the admin's own company must be visible")
	}
	if ruleWithinScope(sc, foreignRule) {
		t.Fatal("rule on another company's equipment must be hidden")
	}
}

func TestRuleWithinScopeEdgeCases(t *testing.T) {
	sysadmin := model.User{ID: uuid.New(), Role: model.RoleSystemAdministrator}
	all := scope.Resolve(sysadmin, nil)

	rule := &model.AlertRule{ID: uuid.New()}
	if !ruleWithinScope(all, rule) {
		t.Fatal("system administrator must see every rule")
	}

	companyID := uuid.New()
	admin := model.User{ID: uuid.New(), Role: model.RoleAdministrator, CompanyID: &companyID}
	sc := scope.Resolve(admin, []model.Plant{{ID: uuid.New(), CompanyID: companyID}})
	if ruleWithinScope(sc, rule) {
		t.Fatal("rule without loaded equipment must stay hidden")
	}
}
