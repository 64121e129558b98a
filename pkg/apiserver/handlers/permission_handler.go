package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/permission"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type PermissionHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewPermissionHandler(db *postgres.Store, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{db: db, logger: logger}
}

func (h *PermissionHandler) load(c *gin.Context) (permission.Table, bool) {
	grants, err := postgres.NewPermissionRepository(h.db.DB()).Load(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load permissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load permissions"})
		return nil, false
	}
	if len(grants) == 0 {
		return permission.Default(), true
	}
	return permission.FromGrants(grants), true
}

func (h *PermissionHandler) Get(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}

	table, ok := h.load(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, table)
}

type grantUpdate struct {
	Role    string `json:"role" binding:"required"`
	Page    string `json:"page" binding:"required"`
	Allowed bool   `json:"allowed"`
}

type permissionUpdateRequest struct {
	Grants []grantUpdate `json:"grants" binding:"required"`
}

// Update applies grant changes on top of the stored table. Only the system
// administrator may write, and their own row stays immutable.
func (h *PermissionHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleSystemAdministrator {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the system administrator manages permissions"})
		return
	}

	var req permissionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	table, ok := h.load(c)
	if !ok {
		return
	}

	for _, grant := range req.Grants {
		role := model.Role(grant.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role", "role": grant.Role})
			return
		}
		next, err := table.With(role, model.Page(grant.Page), grant.Allowed)
		if err != nil {
			switch {
			case errors.Is(err, permission.ErrImmutableRole):
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			case errors.Is(err, permission.ErrUnknownPage):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "page": grant.Page})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}
		table = next
	}

	if err := postgres.NewPermissionRepository(h.db.DB()).Replace(c.Request.Context(), table.Grants()); err != nil {
		h.logger.Error("failed to store permissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store permissions"})
		return
	}

	c.JSON(http.StatusOK, table)
}
