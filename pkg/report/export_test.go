package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pcmindustrial/pcm/pkg/model"
)

func sampleCalls() []model.MaintenanceCall {
	opened := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	assigned := opened.Add(2 * time.Hour)
	return []model.MaintenanceCall{
		{
			ID:          uuid.New(),
			Equipment:   &model.Equipment{Name: "Extrusora 01"},
			Status:      model.CallInProgress,
			Priority:    model.PriorityAlto,
			Category:    model.CategoryCorretiva,
			Source:      model.SourceManual,
			ProblemType: "Mecânica",
			Description: "Ruído excessivo no redutor",
			Responsible: &model.User{Name: "Carlos Souza"},
			OpenedAt:    opened,
			AssignedAt:  &assigned,
		},
		{
			ID:          uuid.New(),
			Status:      model.CallOpen,
			Priority:    model.PriorityMedio,
			Category:    model.CategoryPreventiva,
			Source:      model.SourceAutomatico,
			Description: "[AUTO] Vibração acima do limite",
			OpenedAt:    opened,
		},
	}
}

func TestCallRows(t *testing.T) {
	calls := sampleCalls()
	rows := CallRows(calls)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(CallHeaders) {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), len(CallHeaders))
		}
	}

	first := rows[0]
	if first[1] != "Extrusora 01" {
		t.Fatalf("equipment column = %q", first[1])
	}
	if first[8] != "Carlos Souza" {
		t.Fatalf("responsible column = %q", first[8])
	}
	if first[9] != "2026-03-10 08:00:00" {
		t.Fatalf("opened column = %q", first[9])
	}
	if first[10] != "2026-03-10 10:00:00" {
		t.Fatalf("assigned column = %q", first[10])
	}

	second := rows[1]
	if second[1] != "" || second[8] != "" {
		t.Fatalf("missing associations should render empty, got %q / %q", second[1], second[8])
	}
	if second[12] != "" {
		t.Fatalf("unset closed timestamp should render empty, got %q", second[12])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := CallRows(sampleCalls())

	if err := WriteCSV(&buf, CallHeaders, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(parsed))
	}
	if parsed[0][0] != "ID" || parsed[0][2] != "Status" {
		t.Fatalf("unexpected header row: %v", parsed[0])
	}
	if parsed[1][2] != string(model.CallInProgress) {
		t.Fatalf("status cell = %q", parsed[1][2])
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	rows := CallRows(sampleCalls())

	if err := WriteExcel(&buf, "Chamados", CallHeaders, rows); err != nil {
		t.Fatalf("WriteExcel() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	cells, err := f.GetRows("Chamados")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(cells))
	}
	if cells[0][1] != "Equipamento" {
		t.Fatalf("header cell = %q", cells[0][1])
	}
	if cells[1][1] != "Extrusora 01" {
		t.Fatalf("data cell = %q", cells[1][1])
	}
}

func TestFilename(t *testing.T) {
	name := Filename("csv")
	if !strings.HasPrefix(name, "chamados-") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("unexpected filename %q", name)
	}
}
