package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gloudx/docmigrate/internal/document"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	TableWarningStyle = lipgloss.NewStyle().
		Foreground(ColorWarn)

	TableSuccessStyle = lipgloss.NewStyle().
		Foreground(ColorPass)

	TableFailStyle = lipgloss.NewStyle().
		Foreground(ColorFail)

	TableHintStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	TableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// NewResultsTable creates a table with docmigrate's default border/header
// styling, ready to be populated with rows by the caller.
func NewResultsTable(width int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width)
}

// RenderPlanTable renders a Plan's actions as a table, one row per
// identifier/kind/details.
func RenderPlanTable(width int, plan document.Plan) string {
	t := NewResultsTable(width).
		Headers("IDENTIFIER", "ACTION", "DETAILS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return lipgloss.NewStyle()
		})
	for _, a := range plan.Actions {
		t.Row(a.Identifier, string(a.Kind), a.Details)
	}
	return t.Render()
}

// RenderResultSummary renders a MigrationResult's summary line, colored
// by whether any item failed.
func RenderResultSummary(result document.MigrationResult) string {
	style := TableSuccessStyle
	if result.Summary.Failed > 0 {
		style = TableFailStyle
	} else if result.Summary.Skipped == result.Summary.Processed {
		style = TableHintStyle
	}
	return style.Render(fmt.Sprintf(
		"%s: processed=%d succeeded=%d failed=%d skipped=%d",
		result.Summary.Status, result.Summary.Processed, result.Summary.Succeeded, result.Summary.Failed, result.Summary.Skipped,
	))
}
