package model

import "fmt"

// ConfusionSummary aggregates classification outcomes for one evaluation pass.
// True negatives are implicit.
type ConfusionSummary struct {
	TotalRows                int
	TotalLabeledFraud        int
	CorrectlyIdentifiedFraud int
	FalsePositive            int
	FalseNegative            int
}

// Accuracy returns the share of rows that were neither false positives nor
// false negatives. An empty summary is fully accurate.
func (s ConfusionSummary) Accuracy() float64 {
	if s.TotalRows == 0 {
		return 1
	}
	correct := s.TotalRows - s.FalsePositive - s.FalseNegative
	return float64(correct) / float64(s.TotalRows)
}

// String renders the counters the way the analysis report prints them.
func (s ConfusionSummary) String() string {
	return fmt.Sprintf("Total fraud rows: %d, Correctly identified fraud: %d, False positives: %d, False negatives: %d, Total rows analyzed: %d",
		s.TotalLabeledFraud, s.CorrectlyIdentifiedFraud, s.FalsePositive, s.FalseNegative, s.TotalRows)
}
