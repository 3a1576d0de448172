// Package report exports a user's missions to an Excel workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tirgul/tirgul/internal/mission"
)

const (
	MissionsSheet = "Missions"
	SummarySheet  = "Summary"
)

var missionHeader = []any{
	"ID", "Title", "Type", "Status", "Progress", "Required", "Percent",
	"Accuracy", "Time Spent (s)", "Points", "Deadline", "Created", "Completed",
}

// Workbook holds the rows to export.
type Workbook struct {
	UserKey  string
	Points   int
	Missions []mission.Mission
	Now      time.Time
}

// Write renders wb as an xlsx document to w.
func Write(w io.Writer, wb Workbook) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile renders wb to path.
func WriteFile(path string, wb Workbook) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func build(wb Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", MissionsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeMissions(f, wb); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, wb); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeMissions(f *excelize.File, wb Workbook) error {
	if err := f.SetSheetRow(MissionsSheet, "A1", &missionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(missionHeader), 1)
	if err := f.SetCellStyle(MissionsSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, m := range wb.Missions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			m.ID,
			m.Title,
			string(m.Type),
			string(m.DisplayStatus(wb.Now)),
			m.Progress.CurrentCount,
			m.Progress.RequiredCount,
			m.Progress.Percent(),
			m.Progress.Accuracy,
			m.Progress.TotalTimeSpentSec,
			m.Points,
			formatTime(m.Deadline),
			m.CreatedAt.UTC().Format(time.RFC3339),
			formatTime(m.CompletedAt),
		}
		if err := f.SetSheetRow(MissionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write mission %s: %w", m.ID, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, wb Workbook) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	var active, completed, expired int
	for _, m := range wb.Missions {
		switch m.DisplayStatus(wb.Now) {
		case mission.StatusActive:
			active++
		case mission.StatusCompleted:
			completed++
		default:
			expired++
		}
	}
	rows := [][]any{
		{"User", wb.UserKey},
		{"Points", wb.Points},
		{"Active", active},
		{"Completed", completed},
		{"Expired", expired},
		{"Generated", wb.Now.UTC().Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
