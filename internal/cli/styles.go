// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#FF6B6B")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ShieldIcon  = "🛡️"
	ChartIcon   = "📊"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the shield icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(ShieldIcon + " " + title)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// FormatSummary renders the confusion counts of one evaluation pass.
func FormatSummary(summary model.ConfusionSummary, minimumAccuracy float64) string {
	rows := [][2]string{
		{"Total rows", fmt.Sprintf("%d", summary.TotalRows)},
		{"Labelled fraud", fmt.Sprintf("%d", summary.TotalLabeledFraud)},
		{"Detected fraud", fmt.Sprintf("%d", summary.CorrectlyIdentifiedFraud)},
		{"False positives", fmt.Sprintf("%d", summary.FalsePositive)},
		{"False negatives", fmt.Sprintf("%d", summary.FalseNegative)},
		{"Accuracy", fmt.Sprintf("%.4f (minimum %.4f)", summary.Accuracy(), minimumAccuracy)},
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(TableCellStyle.Width(18).Render(row[0]))
		b.WriteString(row[1])
	}

	title := ChartIcon + " Evaluation"
	if summary.Accuracy() >= minimumAccuracy {
		return RenderBox(title, b.String()+"\n\n"+FormatSuccess("Accuracy threshold met"))
	}
	return RenderBox(title, b.String()+"\n\n"+FormatWarning("Accuracy below threshold"))
}

// FormatRuns renders run history as a table, newest first.
func FormatRuns(runs []model.Run) string {
	if len(runs) == 0 {
		return SubtleStyle.Render("No runs recorded yet.")
	}

	widths := []int{38, 12, 10, 6, 22}
	header := []string{"RUN", "STATE", "ACCURACY", "ITER", "STARTED"}

	var b strings.Builder
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = TableCellStyle.Width(widths[i]).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...)))

	for _, run := range runs {
		values := []string{
			run.ID,
			stateStyle(run.State).Render(string(run.State)),
			fmt.Sprintf("%.4f", run.FinalAccuracy),
			fmt.Sprintf("%d", run.Iterations),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		}
		for i, v := range values {
			cells[i] = TableCellStyle.Width(widths[i]).Render(v)
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return b.String()
}

func stateStyle(state model.State) lipgloss.Style {
	switch state {
	case model.StateAccepted:
		return SuccessStyle
	case model.StateFailed:
		return ErrorStyle
	default:
		return WarningStyle
	}
}
