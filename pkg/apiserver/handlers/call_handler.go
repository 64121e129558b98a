package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/eventbus"
	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/metrics"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
	redisclient "github.com/pcmindustrial/pcm/pkg/store/redis"
)

type CallHandler struct {
	db     *postgres.Store
	redis  *redisclient.Client
	engine *lifecycle.Engine
	logger *zap.Logger
}

func NewCallHandler(db *postgres.Store, redis *redisclient.Client, engine *lifecycle.Engine, logger *zap.Logger) *CallHandler {
	return &CallHandler{db: db, redis: redis, engine: engine, logger: logger}
}

type callCreateRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
	Description string `json:"description" binding:"required"`
	ProblemType string `json:"problem_type"`
	Category    string `json:"category"`
	Notes       string `json:"notes"`
}

type callResponse struct {
	ID              string  `json:"id"`
	EquipmentID     string  `json:"equipment_id"`
	EquipmentName   string  `json:"equipment_name,omitempty"`
	PlantID         string  `json:"plant_id"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	Category        string  `json:"category"`
	Source          string  `json:"source"`
	ProblemType     string  `json:"problem_type,omitempty"`
	Description     string  `json:"description"`
	RequesterID     string  `json:"requester_id"`
	ResponsibleID   *string `json:"responsible_id,omitempty"`
	ResponsibleName string  `json:"responsible_name,omitempty"`
	OpenedAt        string  `json:"opened_at"`
	AssignedAt      *string `json:"assigned_at,omitempty"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	ClosedAt        *string `json:"closed_at,omitempty"`
	Version         int     `json:"version"`
}

type callDetailResponse struct {
	callResponse
	Events []callEventResponse `json:"events"`
}

type callEventResponse struct {
	Sequence  int    `json:"sequence"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	Notes     string `json:"notes,omitempty"`
}

func (h *CallHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req callCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	equipmentID, err := uuid.Parse(req.EquipmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment_id"})
		return
	}

	priority := model.CallPriority(strings.ToUpper(req.Priority))
	if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	category := model.CategoryCorretiva
	if req.Category != "" {
		category = model.MaintenanceCategory(strings.ToUpper(req.Category))
		if category != model.CategoryPreventiva && category != model.CategoryCorretiva {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
	}

	ctx := c.Request.Context()
	equipment, err := postgres.NewEquipmentRepository(h.db.DB()).GetByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
			return
		}
		h.logger.Error("failed to load equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open call"})
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open call"})
		return
	}
	if !sc.AllowsPlant(equipment.PlantID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}

	call, err := h.engine.Open(actor, lifecycle.OpenParams{
		Equipment:   equipment,
		Priority:    priority,
		Description: req.Description,
		ProblemType: req.ProblemType,
		Category:    category,
		Source:      model.SourceManual,
		Notes:       req.Notes,
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}

	if err := postgres.NewCallRepository(h.db.DB()).Create(ctx, call); err != nil {
		h.logger.Error("failed to persist call", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open call"})
		return
	}

	metrics.CallsOpened.WithLabelValues(call.PlantID.String(), string(call.Priority), string(call.Source)).Inc()
	h.publishCallEvent(ctx, "call_opened", call, actor, "")

	call.Equipment = equipment
	c.JSON(http.StatusCreated, mapCall(call))
}

func (h *CallHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var status *model.CallStatus
	if statusValue := strings.TrimSpace(c.Query("status")); statusValue != "" {
		parsed := model.CallStatus(strings.ToUpper(statusValue))
		if !parsed.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &parsed
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list calls"})
		return
	}

	calls, total, err := postgres.NewCallRepository(h.db.DB()).List(c.Request.Context(), sc, status, limit, offset)
	if err != nil {
		h.logger.Error("failed to list calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list calls"})
		return
	}

	response := make([]callResponse, 0, len(calls))
	for i := range calls {
		response = append(response, mapCall(&calls[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"calls": response,
		"total": total,
	})
}

func (h *CallHandler) Get(c *gin.Context) {
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	detail := callDetailResponse{callResponse: mapCall(call)}
	for _, event := range call.Events {
		detail.Events = append(detail.Events, mapEvent(event))
	}

	c.JSON(http.StatusOK, detail)
}

func (h *CallHandler) ListEvents(c *gin.Context) {
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	response := make([]callEventResponse, 0, len(call.Events))
	for _, event := range call.Events {
		response = append(response, mapEvent(event))
	}

	c.JSON(http.StatusOK, response)
}

// ListTechnicians returns the assignment candidates for a call: active
// technicians of the company that owns the call's plant.
func (h *CallHandler) ListTechnicians(c *gin.Context) {
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	plants, err := postgres.NewPlantRepository(h.db.DB()).ListAll(ctx)
	if err != nil {
		h.logger.Error("failed to list plants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list technicians"})
		return
	}

	var companyID *uuid.UUID
	for _, plant := range plants {
		if plant.ID == call.PlantID {
			id := plant.CompanyID
			companyID = &id
			break
		}
	}
	if companyID == nil {
		c.JSON(http.StatusOK, []userResponse{})
		return
	}

	technicians, err := postgres.NewUserRepository(h.db.DB()).ListTechnicians(ctx, *companyID)
	if err != nil {
		h.logger.Error("failed to list technicians", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list technicians"})
		return
	}

	response := make([]userResponse, 0, len(technicians))
	for i := range technicians {
		response = append(response, mapUser(&technicians[i]))
	}

	c.JSON(http.StatusOK, response)
}

type assignRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
}

func (h *CallHandler) Assign(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	technician, ok := h.loadUserByID(c, req.TechnicianID)
	if !ok {
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Assign(actor, call, *technician)
	}, func(ctx context.Context) {
		h.notify(ctx, call.RequesterID, call, fmt.Sprintf("Chamado atribuído para %s.", technician.Name))
	})
}

type transferRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

func (h *CallHandler) Transfer(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	technician, ok := h.loadUserByID(c, req.TechnicianID)
	if !ok {
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Transfer(actor, call, *technician, req.Reason)
	}, nil)
}

func (h *CallHandler) Resolve(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Resolve(actor, call)
	}, func(ctx context.Context) {
		h.notify(ctx, call.RequesterID, call, "Serviço concluído. Aguardando sua aprovação.")
	})
}

func (h *CallHandler) Approve(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Approve(actor, call)
	}, nil)
}

func (h *CallHandler) Reject(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Reject(actor, call)
	}, nil)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *CallHandler) Cancel(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	call, ok := h.loadScopedCall(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	h.applyTransition(c, actor, call, func() error {
		return h.engine.Cancel(actor, call, req.Reason)
	}, nil)
}

// applyTransition runs one engine command and persists the resulting state
// under the call's version guard. afterCommit runs only on success.
func (h *CallHandler) applyTransition(c *gin.Context, actor model.User, call *model.MaintenanceCall, command func() error, afterCommit func(ctx context.Context)) {
	before := len(call.Events)
	fromStatus := call.Status

	if err := command(); err != nil {
		writeCommandError(c, err)
		return
	}

	ctx := c.Request.Context()
	newEvents := call.Events[before:]
	if err := postgres.NewCallRepository(h.db.DB()).SaveTransition(ctx, call, newEvents); err != nil {
		if errors.Is(err, postgres.ErrVersionConflict) {
			metrics.TransitionConflicts.WithLabelValues(call.PlantID.String()).Inc()
		} else {
			h.logger.Error("failed to persist transition", zap.Error(err), zap.String("call_id", call.ID.String()))
		}
		writeCommandError(c, err)
		return
	}

	metrics.CallTransitions.WithLabelValues(call.PlantID.String(), string(fromStatus), string(call.Status)).Inc()
	if call.Status == model.CallClosed && call.ResolvedAt != nil {
		hours := call.ResolvedAt.Sub(call.OpenedAt).Hours()
		if hours >= 0 {
			metrics.RepairHours.WithLabelValues(call.PlantID.String(), string(call.Priority)).Observe(hours)
		}
	}

	note := ""
	if last := call.LastEvent(); last != nil {
		note = last.Notes
	}
	h.publishCallEvent(ctx, "call_transition", call, actor, note)

	if afterCommit != nil {
		afterCommit(ctx)
	}

	c.JSON(http.StatusOK, mapCall(call))
}

// loadScopedCall fetches the call and hides it from actors outside its plant.
func (h *CallHandler) loadScopedCall(c *gin.Context) (*model.MaintenanceCall, bool) {
	actor, ok := mustActor(c)
	if !ok {
		return nil, false
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return nil, false
	}

	call, err := postgres.NewCallRepository(h.db.DB()).GetByID(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return nil, false
		}
		h.logger.Error("failed to load call", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load call"})
		return nil, false
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load call"})
		return nil, false
	}
	if !sc.AllowsPlant(call.PlantID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return nil, false
	}

	return call, true
}

func (h *CallHandler) loadUserByID(c *gin.Context, raw string) (*model.User, bool) {
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid technician_id"})
		return nil, false
	}

	user, err := postgres.NewUserRepository(h.db.DB()).GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
			return nil, false
		}
		h.logger.Error("failed to load technician", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load technician"})
		return nil, false
	}

	return user, true
}

// notify writes a pending notification row and mirrors it on the recipient's
// live channel. Failures are logged, never surfaced to the caller.
func (h *CallHandler) notify(ctx context.Context, userID uuid.UUID, call *model.MaintenanceCall, message string) {
	notification := &model.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		CallID:   call.ID,
		Message:  message,
		Delivery: model.DeliveryPending,
	}
	if err := postgres.NewNotificationRepository(h.db.DB()).Create(ctx, notification); err != nil {
		h.logger.Warn("failed to create notification", zap.Error(err), zap.String("call_id", call.ID.String()))
		return
	}

	if h.redis == nil {
		return
	}
	bus := eventbus.NewBus(h.redis.Client())
	payload := eventbus.NotificationEvent{
		NotificationID: notification.ID.String(),
		UserID:         userID.String(),
		CallID:         call.ID.String(),
		Message:        message,
	}
	if event, err := eventbus.NewEvent("notification", payload); err == nil {
		_ = bus.Publish(ctx, eventbus.NotificationChannel(userID.String()), event)
	}
}

func (h *CallHandler) publishCallEvent(ctx context.Context, eventType string, call *model.MaintenanceCall, actor model.User, message string) {
	if h.redis == nil {
		return
	}
	bus := eventbus.NewBus(h.redis.Client())
	payload := eventbus.CallEvent{
		CallID:  call.ID.String(),
		PlantID: call.PlantID.String(),
		Status:  string(call.Status),
		ActorID: actor.ID.String(),
		Message: message,
	}
	if event, err := eventbus.NewEvent(eventType, payload); err == nil {
		_ = bus.Publish(ctx, eventbus.ChannelCall, event)
	}
}

func mapCall(call *model.MaintenanceCall) callResponse {
	response := callResponse{
		ID:          call.ID.String(),
		EquipmentID: call.EquipmentID.String(),
		PlantID:     call.PlantID.String(),
		Status:      string(call.Status),
		Priority:    string(call.Priority),
		Category:    string(call.Category),
		Source:      string(call.Source),
		ProblemType: call.ProblemType,
		Description: call.Description,
		RequesterID: call.RequesterID.String(),
		OpenedAt:    call.OpenedAt.UTC().Format(timeRFC3339Nano),
		AssignedAt:  formatTime(call.AssignedAt),
		ResolvedAt:  formatTime(call.ResolvedAt),
		ApprovedAt:  formatTime(call.ApprovedAt),
		ClosedAt:    formatTime(call.ClosedAt),
		Version:     call.Version,
	}
	if call.Equipment != nil {
		response.EquipmentName = call.Equipment.Name
	}
	if call.ResponsibleID != nil {
		id := call.ResponsibleID.String()
		response.ResponsibleID = &id
	}
	if call.Responsible != nil {
		response.ResponsibleName = call.Responsible.Name
	}
	return response
}

func mapEvent(event model.CallEvent) callEventResponse {
	return callEventResponse{
		Sequence:  event.Sequence,
		Status:    string(event.Status),
		Timestamp: event.Timestamp.UTC().Format(timeRFC3339Nano),
		UserID:    event.UserID.String(),
		Notes:     event.Notes,
	}
}
