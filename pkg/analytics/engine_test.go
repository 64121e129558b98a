package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
)

var now = time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) *time.Time {
	return &t
}

func resolvedCall(opened time.Time, resolveAfter time.Duration) model.MaintenanceCall {
	resolved := opened.Add(resolveAfter)
	return model.MaintenanceCall{
		ID:          uuid.New(),
		EquipmentID: uuid.New(),
		PlantID:     uuid.New(),
		Status:      model.CallAwaitingApproval,
		Priority:    model.PriorityMedio,
		OpenedAt:    opened,
		ResolvedAt:  &resolved,
	}
}

func TestHoursBetween(t *testing.T) {
	start := now
	hours, err := HoursBetween(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hours != 1.5 {
		t.Fatalf("expected 1.5h, got %v", hours)
	}

	if _, err := HoursBetween(start, start.Add(-time.Minute)); !errors.Is(err, ErrClockAnomaly) {
		t.Fatalf("expected ErrClockAnomaly, got %v", err)
	}
}

func TestSLAVacuouslyMet(t *testing.T) {
	report := ComputeOverview(Snapshot{Now: now})
	if report.SLAMetPercent != 100 {
		t.Fatalf("expected vacuous 100%%, got %v", report.SLAMetPercent)
	}
}

func TestSLAAllWithinWindow(t *testing.T) {
	snap := Snapshot{Now: now, Calls: []model.MaintenanceCall{
		resolvedCall(now.Add(-30*time.Hour), 4*time.Hour),
		resolvedCall(now.Add(-40*time.Hour), 23*time.Hour),
	}}
	if report := ComputeOverview(snap); report.SLAMetPercent != 100 {
		t.Fatalf("expected 100%%, got %v", report.SLAMetPercent)
	}
}

func TestSLAHalfMet(t *testing.T) {
	snap := Snapshot{Now: now, Calls: []model.MaintenanceCall{
		resolvedCall(now.Add(-50*time.Hour), 4*time.Hour),
		resolvedCall(now.Add(-80*time.Hour), 30*time.Hour),
	}}
	if report := ComputeOverview(snap); report.SLAMetPercent != 50 {
		t.Fatalf("expected 50%%, got %v", report.SLAMetPercent)
	}
}

func TestOverviewCountsAndClockAnomaly(t *testing.T) {
	open := model.MaintenanceCall{Status: model.CallOpen, Priority: model.PriorityCritico, OpenedAt: now, ProblemType: "Superaquecimento"}
	inProgress := model.MaintenanceCall{Status: model.CallInProgress, Priority: model.PriorityAlto, OpenedAt: now, ProblemType: "Falha Elétrica"}
	closed := resolvedCall(now.Add(-10*time.Hour), 2*time.Hour)
	closed.Status = model.CallClosed

	// Resolved before it was opened — a skewed clock, flagged not absorbed.
	skewed := model.MaintenanceCall{Status: model.CallClosed, OpenedAt: now, ResolvedAt: ts(now.Add(-time.Hour))}

	report := ComputeOverview(Snapshot{Now: now, Calls: []model.MaintenanceCall{open, inProgress, closed, skewed}})
	if report.OpenCalls != 2 {
		t.Fatalf("expected 2 open calls, got %d", report.OpenCalls)
	}
	if report.CriticalCalls != 1 {
		t.Fatalf("expected 1 critical call, got %d", report.CriticalCalls)
	}
	if report.ClockAnomalies != 1 {
		t.Fatalf("expected 1 clock anomaly, got %d", report.ClockAnomalies)
	}
	if report.SLAMetPercent != 100 {
		t.Fatalf("anomalous call must not enter the SLA ratio, got %v", report.SLAMetPercent)
	}
}

func TestDowntimeAndFinancial(t *testing.T) {
	eq := model.Equipment{ID: uuid.New(), Name: "Extrusora Alpha"}
	callA := resolvedCall(now.Add(-10*time.Hour), 4*time.Hour)
	callA.EquipmentID = eq.ID
	callB := resolvedCall(now.Add(-20*time.Hour), 2*time.Hour)
	callB.EquipmentID = eq.ID
	orphan := resolvedCall(now.Add(-20*time.Hour), time.Hour)

	snap := Snapshot{Now: now, Calls: []model.MaintenanceCall{callA, callB, orphan}, Equipment: []model.Equipment{eq}}

	downtime := ComputeDowntime(snap)
	if len(downtime.ByEquipment) != 2 {
		t.Fatalf("expected 2 equipment buckets, got %d", len(downtime.ByEquipment))
	}
	if downtime.ByEquipment[0].Name != "Extrusora Alpha" || downtime.ByEquipment[0].Hours != 6 {
		t.Fatalf("expected Extrusora Alpha with 6h first, got %+v", downtime.ByEquipment[0])
	}
	if downtime.ByEquipment[1].Name != "Desconhecido" {
		t.Fatalf("expected unknown bucket, got %+v", downtime.ByEquipment[1])
	}

	financial := ComputeFinancial(snap)
	if financial.TotalDowntimeHours != 7 {
		t.Fatalf("expected 7h total, got %v", financial.TotalDowntimeHours)
	}
	if financial.DowntimeCost != 7*DowntimeCostPerHour {
		t.Fatalf("expected cost %v, got %v", 7*DowntimeCostPerHour, financial.DowntimeCost)
	}
}

func TestReliabilitySortsByMTBF(t *testing.T) {
	points := ComputeReliability([]model.Equipment{
		{Name: "Corte/Solda Delta", MTBFHours: 800, MTTRHours: 0.8},
		{Name: "Impressora Gamma", MTBFHours: 180, MTTRHours: 4},
		{Name: "Extrusora Alpha", MTBFHours: 250, MTTRHours: 2.5},
	})
	if points[0].Name != "Impressora Gamma" || points[2].Name != "Corte/Solda Delta" {
		t.Fatalf("expected ascending MTBF order, got %+v", points)
	}
}

func TestStrategySplitsByCategory(t *testing.T) {
	report := ComputeStrategy([]model.MaintenanceCall{
		{Category: model.CategoryPreventiva, ProblemType: "Manutenção Preventiva"},
		{Category: model.CategoryCorretiva, ProblemType: "Falha Mecânica"},
		// Label says preventive, category says corrective: the enum wins.
		{Category: model.CategoryCorretiva, ProblemType: "Manutenção Preventiva"},
	})
	if report.Preventive != 1 || report.Corrective != 2 {
		t.Fatalf("expected 1/2 split, got %+v", report)
	}
}

func TestProcessExcludesIncompleteCalls(t *testing.T) {
	opened := now.Add(-48 * time.Hour)
	complete := model.MaintenanceCall{
		Status:     model.CallClosed,
		OpenedAt:   opened,
		AssignedAt: ts(opened.Add(1 * time.Hour)),
		ResolvedAt: ts(opened.Add(4 * time.Hour)),
		ApprovedAt: ts(opened.Add(5 * time.Hour)),
		ClosedAt:   ts(opened.Add(5 * time.Hour)),
	}
	// Missing assignedAt: must be excluded, not treated as zero.
	missingAssign := model.MaintenanceCall{
		Status:     model.CallClosed,
		OpenedAt:   opened,
		ResolvedAt: ts(opened.Add(10 * time.Hour)),
		ApprovedAt: ts(opened.Add(11 * time.Hour)),
		ClosedAt:   ts(opened.Add(11 * time.Hour)),
	}
	// Cancelled while awaiting approval: closedAt is set but approvedAt never
	// was, so the call never finished its approval stage.
	cancelledAwaiting := model.MaintenanceCall{
		Status:     model.CallCancelled,
		OpenedAt:   opened,
		AssignedAt: ts(opened.Add(2 * time.Hour)),
		ResolvedAt: ts(opened.Add(6 * time.Hour)),
		ClosedAt:   ts(opened.Add(7 * time.Hour)),
	}

	report := ComputeProcess(Snapshot{Now: now, Calls: []model.MaintenanceCall{complete, missingAssign, cancelledAwaiting}})
	if report.CompletedCalls != 1 {
		t.Fatalf("expected 1 completed call, got %d", report.CompletedCalls)
	}
	if report.AvgAssignHours != 1 || report.AvgRepairHours != 3 || report.AvgApprovalHours != 1 {
		t.Fatalf("unexpected stage averages: %+v", report)
	}
}

func TestProcessFlagsStaleCalls(t *testing.T) {
	fresh := model.MaintenanceCall{Status: model.CallOpen, OpenedAt: now.Add(-2 * time.Hour)}
	staleOpen := model.MaintenanceCall{ID: uuid.New(), Status: model.CallOpen, OpenedAt: now.Add(-30 * time.Hour)}
	staleApproval := model.MaintenanceCall{
		ID:         uuid.New(),
		Status:     model.CallAwaitingApproval,
		OpenedAt:   now.Add(-100 * time.Hour),
		ResolvedAt: ts(now.Add(-49 * time.Hour)),
	}

	report := ComputeProcess(Snapshot{Now: now, Calls: []model.MaintenanceCall{fresh, staleOpen, staleApproval}})
	if len(report.StaleCalls) != 2 {
		t.Fatalf("expected 2 stale calls, got %d", len(report.StaleCalls))
	}
	for _, stale := range report.StaleCalls {
		if stale.CallID == fresh.ID {
			t.Fatal("fresh call flagged as stale")
		}
		if stale.HoursInStatus <= 0 {
			t.Fatalf("stale call missing waited hours: %+v", stale)
		}
	}
}

func TestTeamAggregatesPerTechnician(t *testing.T) {
	tech := model.User{ID: uuid.New(), Name: "João Silva"}
	techID := tech.ID
	opened := now.Add(-72 * time.Hour)

	mkCall := func(repair time.Duration) model.MaintenanceCall {
		return model.MaintenanceCall{
			Status:        model.CallClosed,
			OpenedAt:      opened,
			AssignedAt:    ts(opened.Add(time.Hour)),
			ResolvedAt:    ts(opened.Add(time.Hour + repair)),
			ResponsibleID: &techID,
			Responsible:   &tech,
		}
	}

	report := ComputeTeam([]model.MaintenanceCall{
		mkCall(2 * time.Hour),
		mkCall(4 * time.Hour),
		{Status: model.CallOpen, OpenedAt: opened}, // unassigned, ignored
	})
	if len(report.Technicians) != 1 {
		t.Fatalf("expected 1 technician, got %d", len(report.Technicians))
	}
	stats := report.Technicians[0]
	if stats.Name != "João Silva" || stats.Calls != 2 || stats.AvgRepairHours != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
