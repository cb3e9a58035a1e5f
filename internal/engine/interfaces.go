package engine

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks Trainer,DatasetProvider,Recorder

import (
	"context"

	"github.com/Veraticus/fraud-detection/internal/model"
)

// Trainer fits, applies and persists the regression model.
type Trainer interface {
	Fit(ctx context.Context, training []model.TransformedRecord) (model.Handle, error)
	Normalize(h model.Handle, record model.TransformedRecord) ([]float64, error)
	Predict(h model.Handle, features []float64) ([]float64, error)
	Decode(h model.Handle, output []float64) (string, error)
	Save(h model.Handle, path string) error
	Load(path string) (model.Handle, error)
}

// DatasetProvider turns a source file into its training and evaluation partitions.
type DatasetProvider interface {
	Prepare(ctx context.Context, source string) (*model.PartitionedDataset, error)
}

// Recorder keeps a history of lifecycle runs.
type Recorder interface {
	StartRun(ctx context.Context, run *model.Run) error
	RecordIteration(ctx context.Context, iteration *model.Iteration) error
	FinishRun(ctx context.Context, run *model.Run) error
}
