package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatMessages(t *testing.T) {
	tests := []struct {
		format func(string) string
		name   string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: SuccessIcon},
		{name: "error", format: FormatError, icon: ErrorIcon},
		{name: "warning", format: FormatWarning, icon: WarningIcon},
		{name: "info", format: FormatInfo, icon: InfoIcon},
		{name: "title", format: FormatTitle, icon: ShieldIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("model accepted")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "model accepted")
		})
	}
}

func TestFormatSummary(t *testing.T) {
	summary := model.ConfusionSummary{
		TotalRows:                10,
		TotalLabeledFraud:        3,
		CorrectlyIdentifiedFraud: 3,
		FalsePositive:            7,
	}

	below := FormatSummary(summary, 0.95)
	assert.Contains(t, below, "Total rows")
	assert.Contains(t, below, "0.3000")
	assert.Contains(t, below, "Accuracy below threshold")

	met := FormatSummary(model.ConfusionSummary{}, 0.95)
	assert.Contains(t, met, "Accuracy threshold met")
}

func TestFormatRuns(t *testing.T) {
	assert.Contains(t, FormatRuns(nil), "No runs recorded yet.")

	out := FormatRuns([]model.Run{
		{
			ID:            "3b1f0d8e-run",
			StartedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			State:         model.StateAccepted,
			FinalAccuracy: 0.97,
			Iterations:    2,
		},
		{
			ID:        "9c2a-run",
			StartedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
			State:     model.StateFailed,
		},
	})
	for _, want := range []string{"RUN", "STATE", "3b1f0d8e-run", "ACCEPTED", "0.9700", "9c2a-run", "FAILED"} {
		assert.Contains(t, out, want)
	}
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer

	bar := NewProgress(&out, 3, "Scoring records")
	bar.Set(1, 3)
	bar.Set(2, 4)
	bar.Describe("Scoring analysis records")
	bar.Finish()

	spinner := NewSpinner(&out, "Training")
	spinner.Tick()
	spinner.Finish()

	var none *Progress
	assert.NotPanics(t, func() {
		none.Tick()
		none.Set(1, 2)
		none.Describe("ignored")
		none.Finish()
	})
}
