package cmd

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/tirgul/tirgul/internal/mission"
	"github.com/tirgul/tirgul/internal/ui/theme"
)

const statusCol = 3

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers(headers...)
}

// missionTable renders missions in the order given.
func missionTable(ms []mission.Mission, now time.Time) string {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{
			m.ID,
			m.Title,
			string(m.Type),
			string(m.DisplayStatus(now)),
			fmt.Sprintf("%d/%d", m.Progress.CurrentCount, m.Progress.RequiredCount),
			theme.ProgressBar(m.Progress.Percent(), 12),
			formatDeadline(m.Deadline),
			fmt.Sprint(m.Points),
		})
	}
	return newTable("ID", "Title", "Type", "Status", "Done", "Progress", "Deadline", "Points").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			if col == statusCol {
				return theme.Status(rows[row][col]).Padding(0, 1)
			}
			return theme.TableCell
		}).
		String()
}

func detailView(d *mission.Detail, now time.Time) string {
	m := d.Mission
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(theme.Label.Render(label) + value + "\n")
	}

	b.WriteString(theme.Title.Render(m.Title) + "\n")
	line("id", theme.Body.Render(m.ID))
	line("type", theme.Body.Render(string(m.Type)))
	status := string(m.DisplayStatus(now))
	line("status", theme.Status(status).Render(status))
	line("progress", theme.ProgressBar(m.Progress.Percent(), 20)+
		theme.Hint.Render(fmt.Sprintf("  %d/%d", m.Progress.CurrentCount, m.Progress.RequiredCount)))
	line("points", theme.Body.Render(fmt.Sprint(m.Points)))
	if m.Deadline != nil {
		line("deadline", theme.Body.Render(formatDeadline(m.Deadline)))
	}

	switch m.Type {
	case mission.TypePractice:
		line("accuracy", theme.Body.Render(fmt.Sprintf("%.2f%%", m.Progress.Accuracy)))
		if len(d.Attempts) > 0 {
			rows := make([][]string, 0, len(d.Attempts))
			for _, a := range d.Attempts {
				result := theme.Incorrect.Render("✗")
				if a.IsCorrect {
					result = theme.Correct.Render("✓")
				}
				rows = append(rows, []string{a.QuestionID, a.QuestionText, result, fmt.Sprint(a.AttemptsCount)})
			}
			b.WriteString(historyTable(rows, "Question", "Text", "Correct", "Attempts"))
		}
	case mission.TypeLecture:
		line("time spent", theme.Body.Render((time.Duration(m.Progress.TotalTimeSpentSec) * time.Second).String()))
		if len(d.Sections) > 0 {
			rows := make([][]string, 0, len(d.Sections))
			for _, s := range d.Sections {
				rows = append(rows, []string{s.LectureID, s.SectionID,
					(time.Duration(s.TimeSpentSec) * time.Second).String(),
					s.CompletedAt.Local().Format(time.DateTime)})
			}
			b.WriteString(historyTable(rows, "Lecture", "Section", "Time", "Completed"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func historyTable(rows [][]string, headers ...string) string {
	return newTable(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			return theme.TableCell
		}).
		String() + "\n"
}

func formatDeadline(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
