package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/alerting"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type AlertHandler struct {
	db       *postgres.Store
	alerting *alerting.Service
	logger   *zap.Logger
}

func NewAlertHandler(db *postgres.Store, alertingService *alerting.Service, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{db: db, alerting: alertingService, logger: logger}
}

type alertRuleResponse struct {
	ID             string   `json:"id"`
	EquipmentID    string   `json:"equipment_id"`
	EquipmentName  string   `json:"equipment_name,omitempty"`
	Metric         string   `json:"metric"`
	Condition      string   `json:"condition"`
	Threshold      float64  `json:"threshold"`
	ThresholdUpper *float64 `json:"threshold_upper,omitempty"`
	Description    string   `json:"description,omitempty"`
	IsActive       bool     `json:"is_active"`
}

func (h *AlertHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert rules"})
		return
	}

	rules, err := postgres.NewAlertRuleRepository(h.db.DB()).ListScoped(c.Request.Context(), sc)
	if err != nil {
		h.logger.Error("failed to list alert rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert rules"})
		return
	}

	response := make([]alertRuleResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, mapAlertRule(rule))
	}

	c.JSON(http.StatusOK, response)
}

type alertRuleCreateRequest struct {
	EquipmentID    string   `json:"equipment_id" binding:"required"`
	Metric         string   `json:"metric" binding:"required"`
	Condition      string   `json:"condition" binding:"required"`
	Threshold      float64  `json:"threshold"`
	ThresholdUpper *float64 `json:"threshold_upper"`
	Description    string   `json:"description"`
}

func (h *AlertHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	var req alertRuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	condition := model.AlertCondition(strings.ToUpper(req.Condition))
	switch condition {
	case model.ConditionGreaterThan, model.ConditionLessThan, model.ConditionEqualTo, model.ConditionNotEqualTo:
	case model.ConditionOutsideRange:
		if req.ThresholdUpper == nil || *req.ThresholdUpper <= req.Threshold {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_upper must exceed threshold for OUTSIDE_RANGE"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
		return
	}

	equipmentID, err := uuid.Parse(req.EquipmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment_id"})
		return
	}

	ctx := c.Request.Context()
	equipment, err := postgres.NewEquipmentRepository(h.db.DB()).GetByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
			return
		}
		h.logger.Error("failed to load equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert rule"})
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert rule"})
		return
	}
	if !sc.AllowsPlant(equipment.PlantID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}

	rule := &model.AlertRule{
		ID:             uuid.New(),
		EquipmentID:    equipmentID,
		Metric:         strings.ToUpper(req.Metric),
		Condition:      condition,
		Threshold:      req.Threshold,
		ThresholdUpper: req.ThresholdUpper,
		Description:    req.Description,
		IsActive:       true,
	}
	if err := postgres.NewAlertRuleRepository(h.db.DB()).Create(ctx, rule); err != nil {
		h.logger.Error("failed to create alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert rule"})
		return
	}

	c.JSON(http.StatusCreated, mapAlertRule(*rule))
}

type alertRuleUpdateRequest struct {
	IsActive       *bool    `json:"is_active"`
	Threshold      *float64 `json:"threshold"`
	ThresholdUpper *float64 `json:"threshold_upper"`
	Description    *string  `json:"description"`
}

func (h *AlertHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var req alertRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	rule, err := postgres.NewAlertRuleRepository(h.db.DB()).GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		h.logger.Error("failed to load alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert rule"})
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert rule"})
		return
	}
	// Rules outside the actor's plants stay invisible, same as reads.
	if !ruleWithinScope(sc, rule) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
		return
	}

	updates := map[string]interface{}{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Threshold != nil {
		updates["threshold"] = *req.Threshold
	}
	if req.ThresholdUpper != nil {
		updates["threshold_upper"] = *req.ThresholdUpper
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := postgres.NewAlertRuleRepository(h.db.DB()).Update(ctx, ruleID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		h.logger.Error("failed to update alert rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type readingRequest struct {
	EquipmentID string  `json:"equipment_id" binding:"required"`
	Metric      string  `json:"metric" binding:"required"`
	Value       float64 `json:"value"`
}

// SubmitReading evaluates one reading against the equipment's active rules
// and reports any automatically opened calls.
func (h *AlertHandler) SubmitReading(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	equipmentID, err := uuid.Parse(req.EquipmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment_id"})
		return
	}

	opened, err := h.alerting.ProcessReading(c.Request.Context(), actor, equipmentID, strings.ToUpper(req.Metric), req.Value)
	if err != nil {
		h.logger.Error("failed to process reading", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process reading"})
		return
	}

	calls := make([]callResponse, 0, len(opened))
	for _, call := range opened {
		calls = append(calls, mapCall(call))
	}

	c.JSON(http.StatusOK, gin.H{
		"triggered":    len(calls) > 0,
		"opened_calls": calls,
	})
}

// ruleWithinScope reports whether the rule's equipment sits on a plant the
// actor may see. A rule without its equipment loaded is treated as invisible.
func ruleWithinScope(sc scope.Scope, rule *model.AlertRule) bool {
	if sc.All {
		return true
	}
	if rule.Equipment == nil {
		return false
	}
	return sc.AllowsPlant(rule.Equipment.PlantID)
}

func mapAlertRule(rule model.AlertRule) alertRuleResponse {
	response := alertRuleResponse{
		ID:             rule.ID.String(),
		EquipmentID:    rule.EquipmentID.String(),
		Metric:         rule.Metric,
		Condition:      string(rule.Condition),
		Threshold:      rule.Threshold,
		ThresholdUpper: rule.ThresholdUpper,
		Description:    rule.Description,
		IsActive:       rule.IsActive,
	}
	if rule.Equipment != nil {
		response.EquipmentName = rule.Equipment.Name
	}
	return response
}
