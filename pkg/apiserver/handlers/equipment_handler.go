package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type EquipmentHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewEquipmentHandler(db *postgres.Store, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{db: db, logger: logger}
}

type equipmentResponse struct {
	ID              string  `json:"id"`
	PlantID         string  `json:"plant_id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Line            string  `json:"line,omitempty"`
	AvailabilityPct float64 `json:"availability_pct"`
	MTTRHours       float64 `json:"mttr_hours"`
	MTBFHours       float64 `json:"mtbf_hours"`
}

type failureResponse struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Description   string  `json:"description,omitempty"`
	DowntimeHours float64 `json:"downtime_hours"`
}

type equipmentDetailResponse struct {
	equipmentResponse
	FailureHistory []failureResponse `json:"failure_history"`
}

func (h *EquipmentHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list equipment"})
		return
	}

	equipment, err := postgres.NewEquipmentRepository(h.db.DB()).ListScoped(c.Request.Context(), sc)
	if err != nil {
		h.logger.Error("failed to list equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list equipment"})
		return
	}

	response := make([]equipmentResponse, 0, len(equipment))
	for _, item := range equipment {
		response = append(response, mapEquipment(item))
	}

	c.JSON(http.StatusOK, response)
}

type equipmentCreateRequest struct {
	PlantID         string  `json:"plant_id" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Line            string  `json:"line"`
	AvailabilityPct float64 `json:"availability_pct"`
	MTTRHours       float64 `json:"mttr_hours"`
	MTBFHours       float64 `json:"mtbf_hours"`
}

func (h *EquipmentHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	var req equipmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	plantID, err := uuid.Parse(req.PlantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant_id"})
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create equipment"})
		return
	}
	if !sc.AllowsPlant(plantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "plant outside your scope"})
		return
	}

	equipment := &model.Equipment{
		ID:              uuid.New(),
		PlantID:         plantID,
		Name:            req.Name,
		Type:            model.EquipmentType(strings.ToUpper(req.Type)),
		Line:            req.Line,
		AvailabilityPct: req.AvailabilityPct,
		MTTRHours:       req.MTTRHours,
		MTBFHours:       req.MTBFHours,
	}
	if err := postgres.NewEquipmentRepository(h.db.DB()).Create(c.Request.Context(), equipment); err != nil {
		h.logger.Error("failed to create equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create equipment"})
		return
	}

	c.JSON(http.StatusCreated, mapEquipment(*equipment))
}

func (h *EquipmentHandler) Get(c *gin.Context) {
	equipment, ok := h.loadScopedEquipment(c)
	if !ok {
		return
	}

	detail := equipmentDetailResponse{equipmentResponse: mapEquipment(*equipment)}
	for _, record := range equipment.FailureHistory {
		detail.FailureHistory = append(detail.FailureHistory, failureResponse{
			ID:            record.ID.String(),
			Date:          record.Date.UTC().Format(timeRFC3339Nano),
			Description:   record.Description,
			DowntimeHours: record.DowntimeHours,
		})
	}

	c.JSON(http.StatusOK, detail)
}

type failureCreateRequest struct {
	Date          string  `json:"date" binding:"required"`
	Description   string  `json:"description"`
	DowntimeHours float64 `json:"downtime_hours"`
}

func (h *EquipmentHandler) AddFailure(c *gin.Context) {
	equipment, ok := h.loadScopedEquipment(c)
	if !ok {
		return
	}

	var req failureCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	if req.DowntimeHours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "downtime_hours must not be negative"})
		return
	}

	record := &model.FailureRecord{
		ID:            uuid.New(),
		EquipmentID:   equipment.ID,
		Date:          date,
		Description:   req.Description,
		DowntimeHours: req.DowntimeHours,
	}
	if err := postgres.NewEquipmentRepository(h.db.DB()).AddFailure(c.Request.Context(), record); err != nil {
		h.logger.Error("failed to record failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record failure"})
		return
	}

	c.JSON(http.StatusCreated, failureResponse{
		ID:            record.ID.String(),
		Date:          record.Date.UTC().Format(timeRFC3339Nano),
		Description:   record.Description,
		DowntimeHours: record.DowntimeHours,
	})
}

func (h *EquipmentHandler) loadScopedEquipment(c *gin.Context) (*model.Equipment, bool) {
	actor, ok := mustActor(c)
	if !ok {
		return nil, false
	}

	equipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return nil, false
	}

	equipment, err := postgres.NewEquipmentRepository(h.db.DB()).GetByID(c.Request.Context(), equipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
			return nil, false
		}
		h.logger.Error("failed to load equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load equipment"})
		return nil, false
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load equipment"})
		return nil, false
	}
	if !sc.AllowsPlant(equipment.PlantID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return nil, false
	}

	return equipment, true
}

func mapEquipment(equipment model.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:              equipment.ID.String(),
		PlantID:         equipment.PlantID.String(),
		Name:            equipment.Name,
		Type:            string(equipment.Type),
		Line:            equipment.Line,
		AvailabilityPct: equipment.AvailabilityPct,
		MTTRHours:       equipment.MTTRHours,
		MTBFHours:       equipment.MTBFHours,
	}
}
