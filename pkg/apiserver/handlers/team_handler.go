package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type TeamHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewTeamHandler(db *postgres.Store, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{db: db, logger: logger}
}

type teamResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *TeamHandler) List(c *gin.Context) {
	teams, err := postgres.NewTeamRepository(h.db.DB()).List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list teams", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list teams"})
		return
	}

	response := make([]teamResponse, 0, len(teams))
	for _, team := range teams {
		response = append(response, teamResponse{ID: team.ID.String(), Name: team.Name})
	}

	c.JSON(http.StatusOK, response)
}

type teamCreateRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *TeamHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	var req teamCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	team := &model.Team{ID: uuid.New(), Name: req.Name}
	if err := postgres.NewTeamRepository(h.db.DB()).Create(c.Request.Context(), team); err != nil {
		h.logger.Error("failed to create team", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create team"})
		return
	}

	c.JSON(http.StatusCreated, teamResponse{ID: team.ID.String(), Name: team.Name})
}

func (h *TeamHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
		return
	}

	if err := postgres.NewTeamRepository(h.db.DB()).Delete(c.Request.Context(), teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
			return
		}
		h.logger.Error("failed to delete team", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete team"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
