package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/analytics"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type AnalyticsHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewAnalyticsHandler(db *postgres.Store, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, logger: logger}
}

// snapshot loads everything visible to the actor; every report derives from
// this one scoped view, so no endpoint can leak across plants.
func (h *AnalyticsHandler) snapshot(c *gin.Context) (analytics.Snapshot, bool) {
	actor, ok := mustActor(c)
	if !ok {
		return analytics.Snapshot{}, false
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute analytics"})
		return analytics.Snapshot{}, false
	}

	ctx := c.Request.Context()
	calls, err := postgres.NewCallRepository(h.db.DB()).ListScoped(ctx, sc)
	if err != nil {
		h.logger.Error("failed to load calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute analytics"})
		return analytics.Snapshot{}, false
	}

	equipment, err := postgres.NewEquipmentRepository(h.db.DB()).ListScoped(ctx, sc)
	if err != nil {
		h.logger.Error("failed to load equipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute analytics"})
		return analytics.Snapshot{}, false
	}

	return analytics.Snapshot{
		Calls:     calls,
		Equipment: equipment,
		Now:       time.Now().UTC(),
	}, true
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeOverview(snap))
}

func (h *AnalyticsHandler) Downtime(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeDowntime(snap))
}

func (h *AnalyticsHandler) Financial(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeFinancial(snap))
}

func (h *AnalyticsHandler) Reliability(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeReliability(snap.Equipment))
}

func (h *AnalyticsHandler) Strategy(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeStrategy(snap.Calls))
}

func (h *AnalyticsHandler) Process(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeProcess(snap))
}

func (h *AnalyticsHandler) Team(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeTeam(snap.Calls))
}
