package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/auth"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type AuthHandler struct {
	db     *postgres.Store
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(db *postgres.Store, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Login     string  `json:"login"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Role      string  `json:"role"`
	CompanyID *string `json:"company_id,omitempty"`
	PlantID   *string `json:"plant_id,omitempty"`
	TeamID    *string `json:"team_id,omitempty"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	repo := postgres.NewUserRepository(h.db.DB())
	user, err := repo.GetByLogin(c.Request.Context(), req.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("failed to load user for login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  mapUser(user),
	})
}

func mapUser(user *model.User) userResponse {
	response := userResponse{
		ID:    user.ID.String(),
		Login: user.Login,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
	if user.CompanyID != nil {
		id := user.CompanyID.String()
		response.CompanyID = &id
	}
	if user.PlantID != nil {
		id := user.PlantID.String()
		response.PlantID = &id
	}
	if user.TeamID != nil {
		id := user.TeamID.String()
		response.TeamID = &id
	}
	return response
}
