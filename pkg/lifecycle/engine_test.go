package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
)

var baseTime = time.Date(2024, 7, 19, 8, 0, 0, 0, time.UTC)

type fixture struct {
	engine    *Engine
	clock     *fakeClock
	admin     model.User
	tech      model.User
	otherTech model.User
	operator  model.User
	equipment model.Equipment
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newFixture() *fixture {
	clock := &fakeClock{current: baseTime}
	companyID := uuid.New()
	plantID := uuid.New()
	return &fixture{
		engine: NewEngineWithClock(clock.now),
		clock:  clock,
		admin: model.User{
			ID: uuid.New(), Name: "Admin Geral", Role: model.RoleAdministrator, CompanyID: &companyID,
		},
		tech: model.User{
			ID: uuid.New(), Name: "João Silva", Role: model.RoleTecnicoPcm, CompanyID: &companyID,
		},
		otherTech: model.User{
			ID: uuid.New(), Name: "Ana Costa", Role: model.RoleTecnicoPcm, CompanyID: &companyID,
		},
		operator: model.User{
			ID: uuid.New(), Name: "Maria Souza", Role: model.RoleOperador, CompanyID: &companyID,
		},
		equipment: model.Equipment{
			ID: uuid.New(), PlantID: plantID, Name: "Extrusora Alpha", Type: model.EquipmentExtrusora,
		},
	}
}

func (f *fixture) openCall(t *testing.T) *model.MaintenanceCall {
	t.Helper()
	call, err := f.engine.Open(f.operator, OpenParams{
		Equipment:   &f.equipment,
		Priority:    model.PriorityAlto,
		Description: "Ruído incomum na esteira de saída",
		ProblemType: "Falha Mecânica",
	})
	if err != nil {
		t.Fatalf("open call: %v", err)
	}
	return call
}

func assertLogMatchesStatus(t *testing.T, call *model.MaintenanceCall) {
	t.Helper()
	last := call.LastEvent()
	if last == nil {
		t.Fatal("call has no events")
	}
	if last.Status != call.Status {
		t.Fatalf("last event status %s does not match call status %s", last.Status, call.Status)
	}
	for i, event := range call.Events {
		if event.Sequence != i+1 {
			t.Fatalf("event %d has sequence %d", i, event.Sequence)
		}
	}
}

func TestOpenSeedsEventLog(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)

	if call.Status != model.CallOpen {
		t.Fatalf("expected ABERTO, got %s", call.Status)
	}
	if call.PlantID != f.equipment.PlantID {
		t.Fatal("plant must be taken from the equipment")
	}
	if call.RequesterID != f.operator.ID {
		t.Fatal("requester must be the acting user")
	}
	if call.Source != model.SourceManual || call.Category != model.CategoryCorretiva {
		t.Fatalf("expected manual corrective defaults, got %s/%s", call.Source, call.Category)
	}
	if len(call.Events) != 1 {
		t.Fatalf("expected one seed event, got %d", len(call.Events))
	}
	if !call.OpenedAt.Equal(call.Events[0].Timestamp) {
		t.Fatal("openedAt must equal the seed event timestamp")
	}
	assertLogMatchesStatus(t, call)
}

func TestOpenRejectsMissingInputs(t *testing.T) {
	f := newFixture()

	if _, err := f.engine.Open(f.operator, OpenParams{Priority: model.PriorityAlto, Description: "x"}); err == nil {
		t.Fatal("expected error without equipment")
	}
	if _, err := f.engine.Open(f.operator, OpenParams{Equipment: &f.equipment, Priority: "URGENTE", Description: "x"}); err == nil {
		t.Fatal("expected error for unknown priority")
	}
	if _, err := f.engine.Open(f.operator, OpenParams{Equipment: &f.equipment, Priority: model.PriorityAlto}); err == nil {
		t.Fatal("expected error without description")
	}
}

func TestAssign(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	f.clock.advance(15 * time.Minute)

	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if call.Status != model.CallInProgress {
		t.Fatalf("expected EM_ANDAMENTO, got %s", call.Status)
	}
	if call.ResponsibleID == nil || *call.ResponsibleID != f.tech.ID {
		t.Fatal("responsible must be the assigned technician")
	}
	if call.AssignedAt == nil || !call.AssignedAt.Equal(f.clock.current) {
		t.Fatal("assignedAt must be set to now")
	}
	assertLogMatchesStatus(t, call)
}

func TestAssignGuards(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)

	if err := f.engine.Assign(f.operator, call, f.tech); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for operator, got %v", err)
	}
	if err := f.engine.Assign(f.admin, call, f.operator); !errors.Is(err, ErrNotTechnician) {
		t.Fatalf("expected ErrNotTechnician, got %v", err)
	}

	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	before := len(call.Events)

	// Assign from any status other than ABERTO must leave the call unchanged.
	if err := f.engine.Assign(f.admin, call, f.otherTech); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(call.Events) != before || *call.ResponsibleID != f.tech.ID {
		t.Fatal("rejected assign mutated the call")
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	firstAssigned := *call.AssignedAt

	f.clock.advance(2 * time.Hour)
	if err := f.engine.Transfer(f.tech, call, f.otherTech, "Necessário especialista em elétrica"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if call.Status != model.CallInProgress {
		t.Fatal("transfer must not change status")
	}
	if *call.ResponsibleID != f.otherTech.ID {
		t.Fatal("responsible must be the new technician")
	}
	if !call.AssignedAt.After(firstAssigned) {
		t.Fatal("transfer must reset assignedAt")
	}
	assertLogMatchesStatus(t, call)
}

func TestTransferGuards(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)

	if err := f.engine.Transfer(f.tech, call, f.otherTech, "motivo"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized before assignment, got %v", err)
	}

	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := f.engine.Transfer(f.otherTech, call, f.tech, "motivo"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-responsible, got %v", err)
	}
	if err := f.engine.Transfer(f.tech, call, f.otherTech, ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if err := f.engine.Transfer(f.tech, call, f.tech, "motivo"); !errors.Is(err, ErrSameResponsible) {
		t.Fatalf("expected ErrSameResponsible, got %v", err)
	}

	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := f.engine.Transfer(f.tech, call, f.otherTech, "motivo"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after resolve, got %v", err)
	}
}

func TestResolveApproveClosesCall(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}

	f.clock.advance(4 * time.Hour)
	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if call.Status != model.CallAwaitingApproval || call.ResolvedAt == nil {
		t.Fatalf("expected AGUARDANDO_APROVACAO with resolvedAt, got %s", call.Status)
	}

	f.clock.advance(30 * time.Minute)
	if err := f.engine.Approve(f.operator, call); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if call.Status != model.CallClosed {
		t.Fatalf("expected ENCERRADO, got %s", call.Status)
	}
	if call.ApprovedAt == nil || call.ClosedAt == nil || !call.ClosedAt.Equal(*call.ApprovedAt) {
		t.Fatal("closedAt must equal approvedAt")
	}

	statuses := []model.CallStatus{model.CallOpen, model.CallInProgress, model.CallAwaitingApproval, model.CallClosed}
	if len(call.Events) != len(statuses) {
		t.Fatalf("expected %d events, got %d", len(statuses), len(call.Events))
	}
	for i, status := range statuses {
		if call.Events[i].Status != status {
			t.Fatalf("event %d: expected %s, got %s", i, status, call.Events[i].Status)
		}
	}
	assertLogMatchesStatus(t, call)
}

func TestRejectKeepsResponsibleAndRepairClock(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	assignedAt := *call.AssignedAt

	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	before := len(call.Events)

	f.clock.advance(time.Hour)
	if err := f.engine.Reject(f.operator, call); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if call.Status != model.CallInProgress {
		t.Fatalf("expected EM_ANDAMENTO after reject, got %s", call.Status)
	}
	if *call.ResponsibleID != f.tech.ID {
		t.Fatal("reject must keep the same responsible technician")
	}
	if !call.AssignedAt.Equal(assignedAt) {
		t.Fatal("reject must not reset assignedAt")
	}
	if len(call.Events) != before+1 {
		t.Fatalf("event log must grow by exactly one, grew by %d", len(call.Events)-before)
	}
	assertLogMatchesStatus(t, call)
}

func TestApproveRejectAuthorization(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// The technician is neither the requester nor admin tier.
	if err := f.engine.Approve(f.tech, call); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.Reject(f.otherTech, call); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	// Admin tier may judge on the requester's behalf.
	if err := f.engine.Approve(f.admin, call); err != nil {
		t.Fatalf("approve as admin: %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)

	if err := f.engine.Cancel(f.operator, call, "duplicado"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.Cancel(f.admin, call, ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	if err := f.engine.Cancel(f.admin, call, "Chamado duplicado"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if call.Status != model.CallCancelled || call.ClosedAt == nil {
		t.Fatalf("expected CANCELADO with closedAt, got %s", call.Status)
	}
	assertLogMatchesStatus(t, call)

	if err := f.engine.Cancel(f.admin, call, "de novo"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on terminal call, got %v", err)
	}
}

func TestTerminalCallsRejectEveryCommand(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := f.engine.Approve(f.admin, call); err != nil {
		t.Fatalf("approve: %v", err)
	}
	events := len(call.Events)

	if err := f.engine.Assign(f.admin, call, f.otherTech); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("assign on closed call: %v", err)
	}
	if err := f.engine.Resolve(f.tech, call); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolve on closed call: %v", err)
	}
	if err := f.engine.Approve(f.admin, call); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve on closed call: %v", err)
	}
	if err := f.engine.Reject(f.admin, call); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reject on closed call: %v", err)
	}
	if len(call.Events) != events {
		t.Fatal("rejected commands must not append events")
	}
}

func TestIsStale(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)

	if stale, _ := IsStale(call, baseTime.Add(23*time.Hour)); stale {
		t.Fatal("open call under 24h must not be stale")
	}
	if stale, waited := IsStale(call, baseTime.Add(25*time.Hour)); !stale || waited != 25*time.Hour {
		t.Fatalf("open call over 24h must be stale, got stale=%v waited=%v", stale, waited)
	}

	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	assigned := *call.AssignedAt
	if stale, _ := IsStale(call, assigned.Add(71*time.Hour)); stale {
		t.Fatal("in-progress call under 72h must not be stale")
	}
	if stale, _ := IsStale(call, assigned.Add(73*time.Hour)); !stale {
		t.Fatal("in-progress call over 72h must be stale")
	}

	if err := f.engine.Resolve(f.tech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolved := *call.ResolvedAt
	if stale, _ := IsStale(call, resolved.Add(47*time.Hour)); stale {
		t.Fatal("awaiting-approval call under 48h must not be stale")
	}
	if stale, _ := IsStale(call, resolved.Add(49*time.Hour)); !stale {
		t.Fatal("awaiting-approval call over 48h must be stale")
	}
}

func TestTimeInStatusUsesLastEvent(t *testing.T) {
	f := newFixture()
	call := f.openCall(t)
	f.clock.advance(time.Hour)
	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got := TimeInStatus(call, f.clock.current.Add(30*time.Minute))
	if got != 30*time.Minute {
		t.Fatalf("expected 30m in status, got %v", got)
	}
}

// tickingClock advances on every read, like the real clock does between two
// consecutive calls inside a command.
type tickingClock struct {
	current time.Time
}

func (c *tickingClock) now() time.Time {
	c.current = c.current.Add(time.Millisecond)
	return c.current
}

func TestTimestampsMatchEventLogUnderTickingClock(t *testing.T) {
	f := newFixture()
	f.engine = NewEngineWithClock((&tickingClock{current: baseTime}).now)

	call := f.openCall(t)
	if !call.OpenedAt.Equal(call.Events[0].Timestamp) {
		t.Fatalf("openedAt %v != seed event timestamp %v", call.OpenedAt, call.Events[0].Timestamp)
	}

	if err := f.engine.Assign(f.admin, call, f.tech); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !call.AssignedAt.Equal(call.Events[1].Timestamp) {
		t.Fatalf("assignedAt %v != event timestamp %v", *call.AssignedAt, call.Events[1].Timestamp)
	}

	if err := f.engine.Transfer(f.tech, call, f.otherTech, "Necessário especialista"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !call.AssignedAt.Equal(call.Events[2].Timestamp) {
		t.Fatalf("assignedAt after transfer %v != event timestamp %v", *call.AssignedAt, call.Events[2].Timestamp)
	}

	if err := f.engine.Resolve(f.otherTech, call); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !call.ResolvedAt.Equal(call.Events[3].Timestamp) {
		t.Fatalf("resolvedAt %v != event timestamp %v", *call.ResolvedAt, call.Events[3].Timestamp)
	}

	if err := f.engine.Approve(f.operator, call); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !call.ApprovedAt.Equal(call.Events[4].Timestamp) {
		t.Fatalf("approvedAt %v != event timestamp %v", *call.ApprovedAt, call.Events[4].Timestamp)
	}
	if !call.ClosedAt.Equal(*call.ApprovedAt) {
		t.Fatal("closedAt must equal approvedAt")
	}
}

func TestCancelTimestampMatchesEventUnderTickingClock(t *testing.T) {
	f := newFixture()
	f.engine = NewEngineWithClock((&tickingClock{current: baseTime}).now)

	call := f.openCall(t)
	if err := f.engine.Cancel(f.admin, call, "Equipamento desativado"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !call.ClosedAt.Equal(call.Events[1].Timestamp) {
		t.Fatalf("closedAt %v != cancel event timestamp %v", *call.ClosedAt, call.Events[1].Timestamp)
	}
}
