package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pcmindustrial/pcm/pkg/model"
)

const timeLayout = "2006-01-02 15:04:05"

// CallHeaders is the column order for the maintenance-call export.
var CallHeaders = []string{
	"ID", "Equipamento", "Status", "Prioridade", "Categoria", "Origem",
	"Tipo de Problema", "Descrição", "Responsável",
	"Aberto em", "Atribuído em", "Resolvido em", "Encerrado em",
}

// CallRows flattens calls into export rows in CallHeaders order. Calls are
// expected to arrive with Equipment and Responsible resolved.
func CallRows(calls []model.MaintenanceCall) [][]string {
	rows := make([][]string, 0, len(calls))
	for _, call := range calls {
		equipmentName := ""
		if call.Equipment != nil {
			equipmentName = call.Equipment.Name
		}
		responsibleName := ""
		if call.Responsible != nil {
			responsibleName = call.Responsible.Name
		}
		rows = append(rows, []string{
			call.ID.String(),
			equipmentName,
			string(call.Status),
			string(call.Priority),
			string(call.Category),
			string(call.Source),
			call.ProblemType,
			call.Description,
			responsibleName,
			formatTime(&call.OpenedAt),
			formatTime(call.AssignedAt),
			formatTime(call.ResolvedAt),
			formatTime(call.ClosedAt),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// WriteCSV writes a header row followed by the data rows.
func WriteCSV(w io.Writer, headers []string, rows [][]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteExcel writes a single-sheet workbook with a styled header row.
func WriteExcel(w io.Writer, sheetName string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		f.SetColWidth(sheetName, col, col, 18)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	return f.Write(w)
}

// Filename returns the attachment name for a calls export in the given format.
func Filename(format string) string {
	return fmt.Sprintf("chamados-%s.%s", time.Now().UTC().Format("20060102"), format)
}
