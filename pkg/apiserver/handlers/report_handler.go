package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/report"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type ReportHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewReportHandler(db *postgres.Store, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{db: db, logger: logger}
}

// ExportCalls streams the actor's visible calls as CSV or XLSX.
func (h *ReportHandler) ExportCalls(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	sc, err := resolveScope(c, actor, h.db.DB())
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export calls"})
		return
	}

	calls, err := postgres.NewCallRepository(h.db.DB()).ListScoped(c.Request.Context(), sc)
	if err != nil {
		h.logger.Error("failed to load calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export calls"})
		return
	}

	rows := report.CallRows(calls)
	disposition := fmt.Sprintf("attachment; filename=%s", report.Filename(format))

	if format == "xlsx" {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", disposition)
		if err := report.WriteExcel(c.Writer, "Chamados", report.CallHeaders, rows); err != nil {
			h.logger.Error("failed to write workbook", zap.Error(err))
		}
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", disposition)
	if err := report.WriteCSV(c.Writer, report.CallHeaders, rows); err != nil {
		h.logger.Error("failed to write csv", zap.Error(err))
	}
}
