package dataset

import (
	"math/rand"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
)

// SplitterConfig holds the per-class probability of holding a record out for evaluation.
type SplitterConfig struct {
	FraudLabel           string
	HonestLabel          string
	HonestEvaluationOdds float64
	FraudEvaluationOdds  float64
}

// DefaultSplitterConfig holds out 98% of honest and 90% of fraudulent records.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		FraudLabel:           TransactionSchema.FraudLabel,
		HonestLabel:          TransactionSchema.HonestLabel,
		HonestEvaluationOdds: 0.98,
		FraudEvaluationOdds:  0.90,
	}
}

// Splitter assigns records to the training or evaluation partition.
type Splitter struct {
	config SplitterConfig
}

// NewSplitter creates a splitter with the default odds.
func NewSplitter() *Splitter {
	return NewSplitterWithConfig(DefaultSplitterConfig())
}

// NewSplitterWithConfig creates a splitter with custom odds.
func NewSplitterWithConfig(config SplitterConfig) *Splitter {
	return &Splitter{config: config}
}

// Split partitions records by an independent draw per record. Records whose
// label is neither class consume no draw and always train.
func (s *Splitter) Split(records []model.TransformedRecord, labelIndex int, rng *rand.Rand) (model.PartitionedDataset, error) {
	var dataset model.PartitionedDataset

	for i, record := range records {
		label, ok := record.Field(labelIndex)
		if !ok {
			return model.PartitionedDataset{}, common.WithLine(
				common.NewMalformedRecordError("label index %d out of range for %d fields", labelIndex, len(record)), i+1)
		}

		if s.holdOut(label, rng) {
			dataset.Evaluation = append(dataset.Evaluation, record)
		} else {
			dataset.Training = append(dataset.Training, record)
		}
	}

	return dataset, nil
}

func (s *Splitter) holdOut(label string, rng *rand.Rand) bool {
	switch label {
	case s.config.HonestLabel:
		return rng.Float64() < s.config.HonestEvaluationOdds
	case s.config.FraudLabel:
		return rng.Float64() < s.config.FraudEvaluationOdds
	default:
		return false
	}
}
