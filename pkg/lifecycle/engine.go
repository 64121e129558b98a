package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pcmindustrial/pcm/pkg/model"
)

var (
	// ErrInvalidTransition means the call is not in the source state the
	// command requires. The call is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAuthorized means the acting user lacks the role or ownership the
	// command requires.
	ErrNotAuthorized = errors.New("actor not authorized for command")
	// ErrReasonRequired is returned by Transfer and Cancel without a reason.
	ErrReasonRequired = errors.New("reason is required")
	// ErrSameResponsible rejects transferring a call to its current technician.
	ErrSameResponsible = errors.New("call already assigned to this technician")
	// ErrNotTechnician rejects assignment to a user outside the TECNICO_PCM role.
	ErrNotTechnician = errors.New("responsible must be a TECNICO_PCM user")
)

// Stale thresholds per status. Policy constants, not configurable.
const (
	StaleOpenAfter       = 24 * time.Hour
	StaleInProgressAfter = 72 * time.Hour
	StaleApprovalAfter   = 48 * time.Hour
)

// Engine drives a maintenance call through its lifecycle. Every guard — state
// and authorization — is checked here, before any mutation, so call sites
// cannot skip them. A rejected command leaves the call unchanged.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// NewEngineWithClock injects the clock. Tests only.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// OpenParams carries the constructor inputs for a new call.
type OpenParams struct {
	Equipment   *model.Equipment
	Priority    model.CallPriority
	Description string
	ProblemType string
	Category    model.MaintenanceCategory
	Source      model.CallSource
	Notes       string
}

// Open constructs a call in ABERTO with its seed event. The plant is taken
// from the equipment; the requester is the acting user.
func (e *Engine) Open(actor model.User, params OpenParams) (*model.MaintenanceCall, error) {
	if params.Equipment == nil {
		return nil, fmt.Errorf("open call: equipment is required")
	}
	if !params.Priority.Valid() {
		return nil, fmt.Errorf("open call: invalid priority %q", params.Priority)
	}
	if params.Description == "" {
		return nil, fmt.Errorf("open call: description is required")
	}

	source := params.Source
	if source == "" {
		source = model.SourceManual
	}
	category := params.Category
	if category == "" {
		category = model.CategoryCorretiva
	}

	now := e.now()
	call := &model.MaintenanceCall{
		ID:          uuid.New(),
		EquipmentID: params.Equipment.ID,
		PlantID:     params.Equipment.PlantID,
		Status:      model.CallOpen,
		Priority:    params.Priority,
		Description: params.Description,
		ProblemType: params.ProblemType,
		Category:    category,
		Source:      source,
		RequesterID: actor.ID,
		OpenedAt:    now,
		Version:     1,
	}
	e.appendEvent(call, model.CallOpen, now, actor.ID, params.Notes)
	return call, nil
}

// Assign moves an ABERTO call to EM_ANDAMENTO under the given technician.
// Admin tier only.
func (e *Engine) Assign(actor model.User, call *model.MaintenanceCall, technician model.User) error {
	if !actor.Role.AdminTier() {
		return ErrNotAuthorized
	}
	if call.Status != model.CallOpen {
		return ErrInvalidTransition
	}
	if technician.Role != model.RoleTecnicoPcm {
		return ErrNotTechnician
	}

	now := e.now()
	techID := technician.ID
	call.Status = model.CallInProgress
	call.ResponsibleID = &techID
	call.Responsible = &technician
	call.AssignedAt = &now
	e.appendEvent(call, model.CallInProgress, now, actor.ID, fmt.Sprintf("Atribuído para %s", technician.Name))
	return nil
}

// Transfer hands an EM_ANDAMENTO call to a different technician. The current
// responsible issues it, a reason is mandatory, and assignedAt restarts so the
// repair clock measures the new technician.
func (e *Engine) Transfer(actor model.User, call *model.MaintenanceCall, technician model.User, reason string) error {
	if call.ResponsibleID == nil || actor.ID != *call.ResponsibleID {
		return ErrNotAuthorized
	}
	if call.Status != model.CallInProgress {
		return ErrInvalidTransition
	}
	if reason == "" {
		return ErrReasonRequired
	}
	if technician.ID == *call.ResponsibleID {
		return ErrSameResponsible
	}
	if technician.Role != model.RoleTecnicoPcm {
		return ErrNotTechnician
	}

	previous := actor.Name
	if call.Responsible != nil {
		previous = call.Responsible.Name
	}

	now := e.now()
	techID := technician.ID
	call.ResponsibleID = &techID
	call.Responsible = &technician
	call.AssignedAt = &now
	e.appendEvent(call, model.CallInProgress, now, actor.ID,
		fmt.Sprintf("Transferido de %s para %s: %s", previous, technician.Name, reason))
	return nil
}

// Resolve moves an EM_ANDAMENTO call to AGUARDANDO_APROVACAO. Only the
// responsible technician may resolve.
func (e *Engine) Resolve(actor model.User, call *model.MaintenanceCall) error {
	if call.ResponsibleID == nil || actor.ID != *call.ResponsibleID {
		return ErrNotAuthorized
	}
	if call.Status != model.CallInProgress {
		return ErrInvalidTransition
	}

	now := e.now()
	call.Status = model.CallAwaitingApproval
	call.ResolvedAt = &now
	e.appendEvent(call, model.CallAwaitingApproval, now, actor.ID, "")
	return nil
}

// Approve closes an AGUARDANDO_APROVACAO call. Requester or admin tier.
// approvedAt and closedAt are the same instant.
func (e *Engine) Approve(actor model.User, call *model.MaintenanceCall) error {
	if !e.canJudge(actor, call) {
		return ErrNotAuthorized
	}
	if call.Status != model.CallAwaitingApproval {
		return ErrInvalidTransition
	}

	now := e.now()
	call.Status = model.CallClosed
	call.ApprovedAt = &now
	call.ClosedAt = &now
	e.appendEvent(call, model.CallClosed, now, actor.ID, "Serviço concluído e aprovado.")
	return nil
}

// Reject returns an AGUARDANDO_APROVACAO call to the same responsible
// technician. assignedAt is deliberately left alone: the repair clock keeps
// running across a rejection.
func (e *Engine) Reject(actor model.User, call *model.MaintenanceCall) error {
	if !e.canJudge(actor, call) {
		return ErrNotAuthorized
	}
	if call.Status != model.CallAwaitingApproval {
		return ErrInvalidTransition
	}

	call.Status = model.CallInProgress
	e.appendEvent(call, model.CallInProgress, e.now(), actor.ID, "Aprovação rejeitada. Retornado para o manutentor.")
	return nil
}

// Cancel terminates a call from any non-terminal state. Admin tier only.
func (e *Engine) Cancel(actor model.User, call *model.MaintenanceCall, reason string) error {
	if !actor.Role.AdminTier() {
		return ErrNotAuthorized
	}
	if call.Status.Terminal() {
		return ErrInvalidTransition
	}
	if reason == "" {
		return ErrReasonRequired
	}

	now := e.now()
	call.Status = model.CallCancelled
	call.ClosedAt = &now
	e.appendEvent(call, model.CallCancelled, now, actor.ID, reason)
	return nil
}

func (e *Engine) canJudge(actor model.User, call *model.MaintenanceCall) bool {
	return actor.ID == call.RequesterID || actor.Role.AdminTier()
}

// appendEvent records the transition at the same instant the command stamped
// on the call, so openedAt/assignedAt/approvedAt always equal their event's
// timestamp.
func (e *Engine) appendEvent(call *model.MaintenanceCall, status model.CallStatus, at time.Time, userID uuid.UUID, notes string) {
	call.Events = append(call.Events, model.CallEvent{
		ID:        uuid.New(),
		CallID:    call.ID,
		Sequence:  len(call.Events) + 1,
		Status:    status,
		Timestamp: at,
		UserID:    userID,
		Notes:     notes,
	})
}

// TimeInStatus reports how long the call has sat in its current status,
// measured from the most recent event.
func TimeInStatus(call *model.MaintenanceCall, now time.Time) time.Duration {
	last := call.LastEvent()
	if last == nil {
		return now.Sub(call.OpenedAt)
	}
	return now.Sub(last.Timestamp)
}

// IsStale reports whether the call has exceeded its per-status threshold, and
// how long it has been waiting.
func IsStale(call *model.MaintenanceCall, now time.Time) (bool, time.Duration) {
	switch call.Status {
	case model.CallOpen:
		waited := now.Sub(call.OpenedAt)
		return waited > StaleOpenAfter, waited
	case model.CallInProgress:
		if call.AssignedAt == nil {
			return false, 0
		}
		waited := now.Sub(*call.AssignedAt)
		return waited > StaleInProgressAfter, waited
	case model.CallAwaitingApproval:
		if call.ResolvedAt == nil {
			return false, 0
		}
		waited := now.Sub(*call.ResolvedAt)
		return waited > StaleApprovalAfter, waited
	default:
		return false, 0
	}
}
