package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcmindustrial/pcm/pkg/apiserver/middleware"
	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
	"gorm.io/gorm"
)

const timeRFC3339Nano = time.RFC3339Nano

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(timeRFC3339Nano)
	return &formatted
}

// mustActor aborts with 401 when the auth middleware did not run.
func mustActor(c *gin.Context) (model.User, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
	}
	return actor, ok
}

// resolveScope computes the actor's visibility against the current plant set.
func resolveScope(c *gin.Context, actor model.User, db *gorm.DB) (scope.Scope, error) {
	plants, err := postgres.NewPlantRepository(db).ListAll(c.Request.Context())
	if err != nil {
		return scope.Scope{}, err
	}
	return scope.Resolve(actor, plants), nil
}

// writeCommandError maps lifecycle and storage failures onto HTTP statuses.
func writeCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrReasonRequired),
		errors.Is(err, lifecycle.ErrSameResponsible),
		errors.Is(err, lifecycle.ErrNotTechnician):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, postgres.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "call was modified concurrently, reload and retry"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
