package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
)

// FraudLabel is the class token that marks a fraudulent record.
const FraudLabel = "1"

// Harness scores a fitted model against labelled records.
type Harness struct {
	trainer  Trainer
	progress func(done, total int)
}

// NewHarness creates a harness that delegates feature encoding and prediction to trainer.
func NewHarness(trainer Trainer) *Harness {
	return &Harness{trainer: trainer}
}

// WithProgress sets a callback invoked after every scored record.
func (h *Harness) WithProgress(fn func(done, total int)) *Harness {
	h.progress = fn
	return h
}

// Score predicts every record in evaluation and tallies the results against
// the label at labelIndex.
func (h *Harness) Score(ctx context.Context, handle model.Handle, evaluation []model.TransformedRecord, labelIndex int) (model.ConfusionSummary, error) {
	var summary model.ConfusionSummary

	for i, record := range evaluation {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		label, ok := record.Field(labelIndex)
		if !ok {
			return summary, common.WithLine(
				common.NewMalformedRecordError("label index %d out of range for %d fields", labelIndex, len(record)), i+1)
		}
		label = strings.TrimSpace(label)
		labelValue, err := strconv.Atoi(label)
		if err != nil {
			return summary, common.WithLine(common.NewParseError(labelIndex, label, err), i+1)
		}

		predicted, err := h.predict(handle, record)
		if err != nil {
			return summary, fmt.Errorf("failed to score record %d: %w", i+1, err)
		}

		actualFraud := label == FraudLabel
		predictedFraud := predicted == FraudLabel

		summary.TotalRows++
		summary.TotalLabeledFraud += labelValue
		switch {
		case predictedFraud && actualFraud:
			summary.CorrectlyIdentifiedFraud++
		case predictedFraud && !actualFraud:
			summary.FalsePositive++
		case !predictedFraud && actualFraud:
			summary.FalseNegative++
		}

		if h.progress != nil {
			h.progress(i+1, len(evaluation))
		}
	}

	return summary, nil
}

func (h *Harness) predict(handle model.Handle, record model.TransformedRecord) (string, error) {
	features, err := h.trainer.Normalize(handle, record)
	if err != nil {
		return "", err
	}
	output, err := h.trainer.Predict(handle, features)
	if err != nil {
		return "", err
	}
	return h.trainer.Decode(handle, output)
}
