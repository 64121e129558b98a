// Package analytics derives KPIs from scoped call and equipment collections.
// Everything is a pure function of the snapshot passed in; nothing is cached
// or persisted, so reports are always consistent with the store they were
// read from.
package analytics

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/model"
)

// DowntimeCostPerHour is the estimated cost of one hour of stopped equipment,
// in BRL. Fixed policy constant.
const DowntimeCostPerHour = 1500.0

// SLAHours is the resolution window a call must meet, measured from opening.
const SLAHours = 24.0

// ErrClockAnomaly reports a duration whose end precedes its start. Callers
// surface the anomaly instead of silently flipping the sign.
var ErrClockAnomaly = errors.New("duration end precedes start")

// HoursBetween returns end−start in hours, rejecting negative spans.
func HoursBetween(start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, ErrClockAnomaly
	}
	return end.Sub(start).Hours(), nil
}

// Snapshot is a scoped view of the store at one instant.
type Snapshot struct {
	Calls     []model.MaintenanceCall
	Equipment []model.Equipment
	Now       time.Time
}

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type NameHours struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

type NameCost struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

type Overview struct {
	OpenCalls      int         `json:"open_calls"`
	CriticalCalls  int         `json:"critical_calls"`
	SLAMetPercent  float64     `json:"sla_met_percent"`
	ProblemTypes   []NameValue `json:"problem_types"`
	ClockAnomalies int         `json:"clock_anomalies"`
}

// ComputeOverview counts open and critical calls and the SLA compliance
// ratio. With zero resolved calls the SLA is vacuously 100%.
func ComputeOverview(snap Snapshot) Overview {
	report := Overview{SLAMetPercent: 100}

	resolved, met := 0, 0
	problems := map[string]int{}
	for _, call := range snap.Calls {
		if call.Status == model.CallOpen || call.Status == model.CallInProgress {
			report.OpenCalls++
		}
		if call.Priority == model.PriorityCritico {
			report.CriticalCalls++
		}
		problems[call.ProblemType]++

		if call.ResolvedAt == nil {
			continue
		}
		hours, err := HoursBetween(call.OpenedAt, *call.ResolvedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		resolved++
		if hours <= SLAHours {
			met++
		}
	}
	if resolved > 0 {
		report.SLAMetPercent = float64(met) / float64(resolved) * 100
	}
	report.ProblemTypes = sortedNameValues(problems)
	return report
}

type DowntimeReport struct {
	ByEquipment    []NameHours `json:"by_equipment"`
	ClockAnomalies int         `json:"clock_anomalies"`
}

// ComputeDowntime aggregates opened→resolved spans per equipment for every
// resolved call, worst offender first.
func ComputeDowntime(snap Snapshot) DowntimeReport {
	report := DowntimeReport{}
	names := equipmentNames(snap.Equipment)

	byEquipment := map[string]float64{}
	for _, call := range snap.Calls {
		if call.ResolvedAt == nil {
			continue
		}
		hours, err := HoursBetween(call.OpenedAt, *call.ResolvedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		name, ok := names[call.EquipmentID]
		if !ok {
			name = "Desconhecido"
		}
		byEquipment[name] += hours
	}

	for name, hours := range byEquipment {
		report.ByEquipment = append(report.ByEquipment, NameHours{Name: name, Hours: hours})
	}
	sort.Slice(report.ByEquipment, func(i, j int) bool {
		a, b := report.ByEquipment[i], report.ByEquipment[j]
		if a.Hours != b.Hours {
			return a.Hours > b.Hours
		}
		return a.Name < b.Name
	})
	return report
}

type FinancialReport struct {
	TotalDowntimeHours float64    `json:"total_downtime_hours"`
	DowntimeCost       float64    `json:"downtime_cost"`
	CostByEquipment    []NameCost `json:"cost_by_equipment"`
	ClockAnomalies     int        `json:"clock_anomalies"`
}

// ComputeFinancial prices the downtime report at the fixed hourly cost.
func ComputeFinancial(snap Snapshot) FinancialReport {
	downtime := ComputeDowntime(snap)
	report := FinancialReport{ClockAnomalies: downtime.ClockAnomalies}
	for _, item := range downtime.ByEquipment {
		report.TotalDowntimeHours += item.Hours
		report.CostByEquipment = append(report.CostByEquipment, NameCost{
			Name: item.Name,
			Cost: item.Hours * DowntimeCostPerHour,
		})
	}
	report.DowntimeCost = report.TotalDowntimeHours * DowntimeCostPerHour
	return report
}

type ReliabilityPoint struct {
	Name      string  `json:"name"`
	MTBFHours float64 `json:"mtbf_hours"`
	MTTRHours float64 `json:"mttr_hours"`
}

// ComputeReliability projects the equipment performance snapshots, least
// reliable (lowest MTBF) first.
func ComputeReliability(equipment []model.Equipment) []ReliabilityPoint {
	points := make([]ReliabilityPoint, 0, len(equipment))
	for _, eq := range equipment {
		points = append(points, ReliabilityPoint{
			Name:      eq.Name,
			MTBFHours: eq.MTBFHours,
			MTTRHours: eq.MTTRHours,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].MTBFHours != points[j].MTBFHours {
			return points[i].MTBFHours < points[j].MTBFHours
		}
		return points[i].Name < points[j].Name
	})
	return points
}

type StrategyReport struct {
	Preventive int `json:"preventive"`
	Corrective int `json:"corrective"`
}

// ComputeStrategy splits calls by their explicit maintenance category.
func ComputeStrategy(calls []model.MaintenanceCall) StrategyReport {
	report := StrategyReport{}
	for _, call := range calls {
		if call.Category == model.CategoryPreventiva {
			report.Preventive++
		} else {
			report.Corrective++
		}
	}
	return report
}

type StaleCall struct {
	CallID        uuid.UUID        `json:"call_id"`
	Status        model.CallStatus `json:"status"`
	HoursInStatus float64          `json:"hours_in_status"`
}

type ProcessReport struct {
	AvgAssignHours   float64     `json:"avg_assign_hours"`
	AvgRepairHours   float64     `json:"avg_repair_hours"`
	AvgApprovalHours float64     `json:"avg_approval_hours"`
	CompletedCalls   int         `json:"completed_calls"`
	StaleCalls       []StaleCall `json:"stale_calls"`
	ClockAnomalies   int         `json:"clock_anomalies"`
}

// ComputeProcess averages the open→assign, assign→resolve and resolve→close
// stages over calls carrying all four timestamps; calls missing any stamp are
// excluded, never treated as zero. It also flags calls stuck past their
// per-status threshold.
func ComputeProcess(snap Snapshot) ProcessReport {
	report := ProcessReport{}

	var totalAssign, totalRepair, totalApproval float64
	for _, call := range snap.Calls {
		if stale, waited := staleness(call, snap.Now); stale {
			report.StaleCalls = append(report.StaleCalls, StaleCall{
				CallID:        call.ID,
				Status:        call.Status,
				HoursInStatus: waited.Hours(),
			})
		}

		if call.AssignedAt == nil || call.ResolvedAt == nil || call.ApprovedAt == nil || call.ClosedAt == nil {
			continue
		}
		assign, err := HoursBetween(call.OpenedAt, *call.AssignedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		repair, err := HoursBetween(*call.AssignedAt, *call.ResolvedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		approval, err := HoursBetween(*call.ResolvedAt, *call.ClosedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		report.CompletedCalls++
		totalAssign += assign
		totalRepair += repair
		totalApproval += approval
	}

	if report.CompletedCalls > 0 {
		count := float64(report.CompletedCalls)
		report.AvgAssignHours = totalAssign / count
		report.AvgRepairHours = totalRepair / count
		report.AvgApprovalHours = totalApproval / count
	}
	return report
}

type TechnicianStats struct {
	TechnicianID   uuid.UUID `json:"technician_id"`
	Name           string    `json:"name"`
	Calls          int       `json:"calls"`
	AvgRepairHours float64   `json:"avg_repair_hours"`
}

type TeamReport struct {
	Technicians    []TechnicianStats `json:"technicians"`
	ClockAnomalies int               `json:"clock_anomalies"`
}

// ComputeTeam aggregates resolved work per responsible technician. Calls must
// be loaded with their responsible user for names to resolve.
func ComputeTeam(calls []model.MaintenanceCall) TeamReport {
	report := TeamReport{}

	type bucket struct {
		name  string
		count int
		total float64
	}
	buckets := map[uuid.UUID]*bucket{}
	for _, call := range calls {
		if call.ResponsibleID == nil || call.AssignedAt == nil || call.ResolvedAt == nil {
			continue
		}
		hours, err := HoursBetween(*call.AssignedAt, *call.ResolvedAt)
		if err != nil {
			report.ClockAnomalies++
			continue
		}
		b, ok := buckets[*call.ResponsibleID]
		if !ok {
			name := ""
			if call.Responsible != nil {
				name = call.Responsible.Name
			}
			b = &bucket{name: name}
			buckets[*call.ResponsibleID] = b
		}
		b.count++
		b.total += hours
	}

	for id, b := range buckets {
		report.Technicians = append(report.Technicians, TechnicianStats{
			TechnicianID:   id,
			Name:           b.name,
			Calls:          b.count,
			AvgRepairHours: b.total / float64(b.count),
		})
	}
	sort.Slice(report.Technicians, func(i, j int) bool {
		a, b := report.Technicians[i], report.Technicians[j]
		if a.Calls != b.Calls {
			return a.Calls > b.Calls
		}
		return a.Name < b.Name
	})
	return report
}

func staleness(call model.MaintenanceCall, now time.Time) (bool, time.Duration) {
	return lifecycle.IsStale(&call, now)
}

func equipmentNames(equipment []model.Equipment) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(equipment))
	for _, eq := range equipment {
		names[eq.ID] = eq.Name
	}
	return names
}

func sortedNameValues(counts map[string]int) []NameValue {
	out := make([]NameValue, 0, len(counts))
	for name, value := range counts {
		out = append(out, NameValue{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
