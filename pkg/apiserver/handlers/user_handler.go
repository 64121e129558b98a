package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/auth"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type UserHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewUserHandler(db *postgres.Store, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: db, logger: logger}
}

func (h *UserHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var companyID *uuid.UUID
	if actor.Role != model.RoleSystemAdministrator {
		if actor.CompanyID == nil {
			c.JSON(http.StatusOK, []userResponse{})
			return
		}
		companyID = actor.CompanyID
	}

	users, err := postgres.NewUserRepository(h.db.DB()).List(c.Request.Context(), companyID)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	response := make([]userResponse, 0, len(users))
	for i := range users {
		response = append(response, mapUser(&users[i]))
	}

	c.JSON(http.StatusOK, response)
}

type userCreateRequest struct {
	Login     string `json:"login" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Password  string `json:"password" binding:"required"`
	Role      string `json:"role" binding:"required"`
	CompanyID string `json:"company_id"`
	PlantID   string `json:"plant_id"`
	TeamID    string `json:"team_id"`
}

func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	role := model.Role(strings.ToUpper(req.Role))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if role == model.RoleSystemAdministrator && actor.Role != model.RoleSystemAdministrator {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the system administrator creates system administrators"})
		return
	}

	user := &model.User{
		ID:    uuid.New(),
		Login: req.Login,
		Name:  req.Name,
		Email: req.Email,
		Role:  role,
	}

	if req.CompanyID != "" {
		companyID, err := uuid.Parse(req.CompanyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company_id"})
			return
		}
		user.CompanyID = &companyID
	}
	// Company admins may only create users inside their own company.
	if actor.Role != model.RoleSystemAdministrator {
		if actor.CompanyID == nil || user.CompanyID == nil || *user.CompanyID != *actor.CompanyID {
			c.JSON(http.StatusForbidden, gin.H{"error": "user must belong to your company"})
			return
		}
	}

	if req.PlantID != "" {
		plantID, err := uuid.Parse(req.PlantID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant_id"})
			return
		}
		user.PlantID = &plantID
	}
	if req.TeamID != "" {
		teamID, err := uuid.Parse(req.TeamID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team_id"})
			return
		}
		user.TeamID = &teamID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	user.PasswordHash = hash

	if err := postgres.NewUserRepository(h.db.DB()).Create(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, mapUser(user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if userID == actor.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete yourself"})
		return
	}

	repo := postgres.NewUserRepository(h.db.DB())
	target, err := repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if actor.Role != model.RoleSystemAdministrator {
		if actor.CompanyID == nil || target.CompanyID == nil || *target.CompanyID != *actor.CompanyID {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
	}

	if err := repo.Delete(c.Request.Context(), userID); err != nil {
		h.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
