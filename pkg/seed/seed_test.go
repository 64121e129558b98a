package seed

import (
	"testing"
	"time"

	"github.com/pcmindustrial/pcm/pkg/model"
)

func TestParseDataset(t *testing.T) {
	ds, err := parseDataset()
	if err != nil {
		t.Fatalf("parseDataset() error = %v", err)
	}

	if len(ds.Companies) != 2 {
		t.Fatalf("companies = %d, want 2", len(ds.Companies))
	}
	if len(ds.Plants) != 4 {
		t.Fatalf("plants = %d, want 4", len(ds.Plants))
	}
	if len(ds.Teams) != 3 {
		t.Fatalf("teams = %d, want 3", len(ds.Teams))
	}
	if len(ds.Users) != 8 {
		t.Fatalf("users = %d, want 8", len(ds.Users))
	}
	if len(ds.Equipment) != 5 {
		t.Fatalf("equipment = %d, want 5", len(ds.Equipment))
	}
	if len(ds.Calls) != 6 {
		t.Fatalf("calls = %d, want 6", len(ds.Calls))
	}
	if len(ds.Rules) != 4 {
		t.Fatalf("alert rules = %d, want 4", len(ds.Rules))
	}
}

func TestBuildResolvesReferencesAndStages(t *testing.T) {
	ds, err := parseDataset()
	if err != nil {
		t.Fatalf("parseDataset() error = %v", err)
	}

	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	data, err := build(ds, "hash", now)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	plantCompanies := map[string]bool{}
	for _, plant := range data.Plants {
		plantCompanies[plant.CompanyID.String()] = true
	}
	if len(plantCompanies) != 2 {
		t.Fatalf("plants span %d companies, want 2", len(plantCompanies))
	}

	var sysadmins int
	for _, user := range data.Users {
		if user.PasswordHash != "hash" {
			t.Fatalf("user %s missing password hash", user.Login)
		}
		if user.Role == model.RoleSystemAdministrator {
			sysadmins++
			if user.CompanyID != nil {
				t.Fatalf("system administrator must not carry a company")
			}
		}
	}
	if sysadmins != 1 {
		t.Fatalf("expected exactly one system administrator, got %d", sysadmins)
	}

	statuses := map[model.CallStatus]int{}
	for _, call := range data.Calls {
		statuses[call.Status]++

		last := call.LastEvent()
		if last == nil {
			t.Fatalf("seeded call %s has empty event log", call.ID)
		}
		if last.Status != call.Status {
			t.Fatalf("call %s: last event %s != status %s", call.ID, last.Status, call.Status)
		}
		if !call.Events[0].Timestamp.Equal(call.OpenedAt) {
			t.Fatalf("call %s: first event %v != openedAt %v", call.ID, call.Events[0].Timestamp, call.OpenedAt)
		}
		for i, event := range call.Events {
			if event.Sequence != i+1 {
				t.Fatalf("call %s: event %d has sequence %d", call.ID, i, event.Sequence)
			}
		}
		if call.OpenedAt.After(now) {
			t.Fatalf("call %s opened in the future", call.ID)
		}
	}

	if statuses[model.CallOpen] != 1 ||
		statuses[model.CallInProgress] != 2 ||
		statuses[model.CallAwaitingApproval] != 1 ||
		statuses[model.CallClosed] != 1 ||
		statuses[model.CallCancelled] != 1 {
		t.Fatalf("unexpected stage distribution: %v", statuses)
	}

	for _, call := range data.Calls {
		if call.Status == model.CallClosed {
			if call.ClosedAt == nil || call.ApprovedAt == nil || !call.ClosedAt.Equal(*call.ApprovedAt) {
				t.Fatalf("closed call must have closedAt == approvedAt")
			}
		}
		if call.Status == model.CallInProgress && call.ResponsibleID == nil {
			t.Fatalf("in-progress call must have a responsible")
		}
	}

	if len(data.Grants) == 0 {
		t.Fatalf("expected default permission grants")
	}
	if len(data.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(data.Failures))
	}
}

func TestBuildRejectsDanglingReferences(t *testing.T) {
	ds, err := parseDataset()
	if err != nil {
		t.Fatalf("parseDataset() error = %v", err)
	}
	ds.Equipment[0].Plant = "nope"

	if _, err := build(ds, "hash", time.Now()); err == nil {
		t.Fatalf("expected error for dangling plant reference")
	}
}
