package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/model"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyTrainingSet is returned when Fit receives no records.
	ErrEmptyTrainingSet = errors.New("training set is empty")
	// ErrForeignHandle is returned when a handle was not produced by this package.
	ErrForeignHandle = errors.New("handle is not a network model")
)

// EpochStatus reports the progress of one training epoch.
type EpochStatus struct {
	Fold            int
	Folds           int
	Epoch           int
	TrainingError   float64
	ValidationError float64
}

// Config holds the training parameters.
type Config struct {
	Progress      func(EpochStatus)
	HiddenNeurons int
	MaxEpochs     int
	Folds         int
	Patience      int
	Holdback      float64
	MaxCategories int
	HashBuckets   int
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		HiddenNeurons: 25,
		MaxEpochs:     200,
		Folds:         5,
		Patience:      20,
		Holdback:      0.3,
		MaxCategories: 32,
		HashBuckets:   8,
	}
}

// Model is a fitted network together with the normalizer it was trained with.
type Model struct {
	TrainedAt       time.Time   `json:"trained_at"`
	Network         *Network    `json:"network"`
	Normalizer      *Normalizer `json:"normalizer"`
	TrainingError   float64     `json:"training_error"`
	ValidationError float64     `json:"validation_error"`
	Fold            int         `json:"fold"`
}

func (m *Model) String() string {
	return fmt.Sprintf("feedforward %s fold %d, training error %.6f, validation error %.6f",
		m.Network, m.Fold, m.TrainingError, m.ValidationError)
}

// Trainer fits feedforward networks to transformed records.
type Trainer struct {
	rng      *rand.Rand
	config   Config
	schema   dataset.Schema
	mu       sync.Mutex
	reportMu sync.Mutex
}

// NewTrainer creates a trainer with the default configuration.
func NewTrainer(schema dataset.Schema, rng *rand.Rand) *Trainer {
	return NewTrainerWithConfig(schema, rng, DefaultConfig())
}

// NewTrainerWithConfig creates a trainer with custom configuration.
func NewTrainerWithConfig(schema dataset.Schema, rng *rand.Rand, config Config) *Trainer {
	if config.Folds < 1 {
		config.Folds = 1
	}
	if config.MaxEpochs < 1 {
		config.MaxEpochs = 1
	}
	if config.HiddenNeurons < 1 {
		config.HiddenNeurons = 1
	}
	return &Trainer{
		schema: schema,
		rng:    rng,
		config: config,
	}
}

type samples struct {
	inputs [][]float64
	ideals [][]float64
}

func (s samples) subset(indices []int) samples {
	out := samples{
		inputs: make([][]float64, len(indices)),
		ideals: make([][]float64, len(indices)),
	}
	for i, idx := range indices {
		out.inputs[i] = s.inputs[idx]
		out.ideals[i] = s.ideals[idx]
	}
	return out
}

type foldResult struct {
	network         *Network
	validationError float64
	epochs          int
}

// Fit trains a network on records. A share of the records is held back for
// validation; the rest is cross-validated over the configured number of folds
// and the fold with the lowest validation error wins.
func (t *Trainer) Fit(ctx context.Context, records []model.TransformedRecord) (model.Handle, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTrainingSet
	}

	normalizer, err := Analyze(t.schema, records, NormalizerConfig{
		MaxCategories: t.config.MaxCategories,
		HashBuckets:   t.config.HashBuckets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze training data: %w", err)
	}

	all, err := encode(normalizer, records)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	order := t.rng.Perm(len(records))
	holdbackCount := int(float64(len(records)) * t.config.Holdback)
	if holdbackCount >= len(records) {
		holdbackCount = 0
	}
	fitting := order[holdbackCount:]
	folds := min(t.config.Folds, len(fitting))
	seeds := make([]int64, folds)
	for i := range seeds {
		seeds[i] = t.rng.Int63()
	}
	t.mu.Unlock()

	holdback := all.subset(order[:holdbackCount])
	fitSet := all.subset(fitting)
	layers := []int{normalizer.InputSize(), t.config.HiddenNeurons, normalizer.OutputSize()}

	slog.Info("Training network",
		"layers", fmt.Sprint(layers),
		"records", len(records),
		"holdback", holdbackCount,
		"folds", folds)

	results := make([]foldResult, folds)
	g, gctx := errgroup.WithContext(ctx)
	for f := 0; f < folds; f++ {
		g.Go(func() error {
			train, monitor := splitFold(fitSet, holdback, f, folds)
			result, err := t.trainFold(gctx, layers, train, monitor, f, folds, rand.New(rand.NewSource(seeds[f])))
			if err != nil {
				return err
			}
			results[f] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for f := 1; f < folds; f++ {
		if results[f].validationError < results[best].validationError {
			best = f
		}
	}

	winner := results[best].network
	m := &Model{
		TrainedAt:       time.Now(),
		Network:         winner,
		Normalizer:      normalizer,
		Fold:            best + 1,
		TrainingError:   winner.MeanSquaredError(fitSet.inputs, fitSet.ideals),
		ValidationError: results[best].validationError,
	}
	if len(holdback.inputs) > 0 {
		m.ValidationError = winner.MeanSquaredError(holdback.inputs, holdback.ideals)
	}

	slog.Info("Training complete",
		"model", m.String(),
		"epochs", results[best].epochs)

	return m, nil
}

// splitFold returns the training and monitoring samples of fold f. With a
// single fold the whole fitting set trains and the holdback monitors.
func splitFold(fitSet, holdback samples, f, folds int) (samples, samples) {
	if folds == 1 {
		if len(holdback.inputs) == 0 {
			return fitSet, fitSet
		}
		return fitSet, holdback
	}

	n := len(fitSet.inputs)
	lo, hi := f*n/folds, (f+1)*n/folds
	var trainIdx, monitorIdx []int
	for i := 0; i < n; i++ {
		if i >= lo && i < hi {
			monitorIdx = append(monitorIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}
	return fitSet.subset(trainIdx), fitSet.subset(monitorIdx)
}

func (t *Trainer) trainFold(ctx context.Context, layers []int, train, monitor samples, fold, folds int, rng *rand.Rand) (foldResult, error) {
	network, err := NewNetwork(layers, rng)
	if err != nil {
		return foldResult{}, err
	}
	trainer := newRPROP(network)

	best := foldResult{network: network.Clone(), validationError: math.Inf(1)}
	stale := 0
	for epoch := 1; epoch <= t.config.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return foldResult{}, err
		}

		trainingError := trainer.epoch(train.inputs, train.ideals)
		validationError := network.MeanSquaredError(monitor.inputs, monitor.ideals)

		t.report(EpochStatus{
			Fold:            fold + 1,
			Folds:           folds,
			Epoch:           epoch,
			TrainingError:   trainingError,
			ValidationError: validationError,
		})

		if validationError < best.validationError {
			best = foldResult{network: network.Clone(), validationError: validationError, epochs: epoch}
			stale = 0
			continue
		}
		stale++
		if t.config.Patience > 0 && stale >= t.config.Patience {
			break
		}
	}

	return best, nil
}

func (t *Trainer) report(status EpochStatus) {
	if t.config.Progress == nil {
		return
	}
	t.reportMu.Lock()
	defer t.reportMu.Unlock()
	t.config.Progress(status)
}

func encode(normalizer *Normalizer, records []model.TransformedRecord) (samples, error) {
	s := samples{
		inputs: make([][]float64, len(records)),
		ideals: make([][]float64, len(records)),
	}
	for i, record := range records {
		input, err := normalizer.NormalizeInput(record)
		if err != nil {
			return samples{}, fmt.Errorf("failed to normalize training record: %w", common.WithLine(err, i+1))
		}
		ideal, err := normalizer.NormalizeOutput(record)
		if err != nil {
			return samples{}, fmt.Errorf("failed to normalize training record: %w", common.WithLine(err, i+1))
		}
		s.inputs[i] = input
		s.ideals[i] = ideal
	}
	return s, nil
}

// Normalize encodes record as input features for the model behind h.
func (t *Trainer) Normalize(h model.Handle, record model.TransformedRecord) ([]float64, error) {
	m, err := asModel(h)
	if err != nil {
		return nil, err
	}
	return m.Normalizer.NormalizeInput(record)
}

// Predict computes the raw output vector for features.
func (t *Trainer) Predict(h model.Handle, features []float64) ([]float64, error) {
	m, err := asModel(h)
	if err != nil {
		return nil, err
	}
	return m.Network.Compute(features)
}

// Decode maps an output vector to its class label.
func (t *Trainer) Decode(h model.Handle, output []float64) (string, error) {
	m, err := asModel(h)
	if err != nil {
		return "", err
	}
	return m.Normalizer.DenormalizeOutput(output)
}

// Save writes the model behind h to path.
func (t *Trainer) Save(h model.Handle, path string) error {
	m, err := asModel(h)
	if err != nil {
		return err
	}
	return WriteModel(path, m)
}

// Load reads a model previously written by Save.
func (t *Trainer) Load(path string) (model.Handle, error) {
	return ReadModel(path)
}

func asModel(h model.Handle) (*Model, error) {
	m, ok := h.(*Model)
	if !ok || m == nil || m.Network == nil || m.Normalizer == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	return m, nil
}
