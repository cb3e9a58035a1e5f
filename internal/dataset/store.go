package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/fraud-detection/internal/model"
)

// Store prepares partitioned datasets and caches them per source file, both in
// memory and as derived files next to the source.
type Store struct {
	transformer *Transformer
	splitter    *Splitter
	rng         *rand.Rand
	prepared    map[string]*model.PartitionedDataset
	schema      Schema
	mu          sync.Mutex
}

// NewStore creates a dataset store. rng drives every split the store performs.
func NewStore(transformer *Transformer, splitter *Splitter, schema Schema, rng *rand.Rand) *Store {
	return &Store{
		transformer: transformer,
		splitter:    splitter,
		schema:      schema,
		rng:         rng,
		prepared:    make(map[string]*model.PartitionedDataset),
	}
}

// Schema returns the column layout of the datasets the store produces.
func (s *Store) Schema() Schema {
	return s.schema
}

// Prepare returns the partitioned dataset for source. Repeated calls for the
// same file return the same dataset. Existing derived files are reused rather
// than rebuilt.
func (s *Store) Prepare(ctx context.Context, source string) (*model.PartitionedDataset, error) {
	key, err := sourceKey(source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dataset, ok := s.prepared[key]; ok {
		slog.Debug("Reusing prepared dataset", "source", source)
		return dataset, nil
	}

	dataset, err := s.loadPartitions(ctx, source)
	if err != nil {
		return nil, err
	}
	if dataset == nil {
		dataset, err = s.buildPartitions(ctx, source)
		if err != nil {
			return nil, err
		}
	}
	dataset.Source = source

	s.prepared[key] = dataset
	slog.Info("Prepared dataset",
		"source", source,
		"training_rows", len(dataset.Training),
		"evaluation_rows", len(dataset.Evaluation))

	return dataset, nil
}

// EnsureTransformed returns the transformed records of source, reading the
// -transformed file when it exists and writing it otherwise.
func (s *Store) EnsureTransformed(ctx context.Context, source string) ([]model.TransformedRecord, string, error) {
	transformedPath := DerivedPath(source, TransformedSuffix)

	exists, err := fileExists(transformedPath)
	if err != nil {
		return nil, "", err
	}
	if exists {
		slog.Debug("Reusing transformed file", "path", transformedPath)
		records, readErr := ReadTransformedFile(ctx, transformedPath, s.schema.Width())
		if readErr != nil {
			return nil, "", readErr
		}
		return records, transformedPath, nil
	}

	records, err := TransformFile(ctx, s.transformer, source)
	if err != nil {
		return nil, "", err
	}
	if err := WriteRecords(transformedPath, records); err != nil {
		return nil, "", err
	}
	slog.Info("Wrote transformed file", "path", transformedPath, "rows", len(records))

	return records, transformedPath, nil
}

// Invalidate forgets the cached dataset for source and removes its derived files.
func (s *Store) Invalidate(source string) error {
	key, err := sourceKey(source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.prepared, key)
	s.mu.Unlock()

	for _, suffix := range []string{TransformedSuffix, TrainingSuffix, EvaluationSuffix} {
		path := DerivedPath(source, suffix)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func (s *Store) loadPartitions(ctx context.Context, source string) (*model.PartitionedDataset, error) {
	trainingPath := DerivedPath(source, TrainingSuffix)
	evaluationPath := DerivedPath(source, EvaluationSuffix)

	for _, path := range []string{trainingPath, evaluationPath} {
		exists, err := fileExists(path)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, nil
		}
	}

	training, err := ReadTransformedFile(ctx, trainingPath, s.schema.Width())
	if err != nil {
		return nil, err
	}
	evaluation, err := ReadTransformedFile(ctx, evaluationPath, s.schema.Width())
	if err != nil {
		return nil, err
	}

	slog.Debug("Reusing partition files", "training", trainingPath, "evaluation", evaluationPath)
	return &model.PartitionedDataset{
		Training:   training,
		Evaluation: evaluation,
	}, nil
}

func (s *Store) buildPartitions(ctx context.Context, source string) (*model.PartitionedDataset, error) {
	records, _, err := s.EnsureTransformed(ctx, source)
	if err != nil {
		return nil, err
	}

	dataset, err := s.splitter.Split(records, s.schema.LabelIndex, s.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", source, err)
	}

	if err := WriteRecords(DerivedPath(source, TrainingSuffix), dataset.Training); err != nil {
		return nil, err
	}
	if err := WriteRecords(DerivedPath(source, EvaluationSuffix), dataset.Evaluation); err != nil {
		return nil, err
	}

	return &dataset, nil
}

func sourceKey(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	return filepath.Clean(abs), nil
}
