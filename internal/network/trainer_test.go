package network

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns n records labelled fraud exactly when the item amount
// exceeds 5.
func separable(n int, seed int64) []model.TransformedRecord {
	rng := rand.New(rand.NewSource(seed))
	records := make([]model.TransformedRecord, n)
	for i := range records {
		amount := rng.Float64() * 10
		label := "0"
		if amount > 5 {
			label = "1"
		}
		records[i] = transaction(amount, "acme", label)
	}
	return records
}

func testConfig() Config {
	config := DefaultConfig()
	config.HiddenNeurons = 4
	config.MaxEpochs = 150
	config.Folds = 3
	config.Patience = 0
	return config
}

func accuracy(t *testing.T, trainer *Trainer, h model.Handle, records []model.TransformedRecord) float64 {
	t.Helper()
	correct := 0
	for _, record := range records {
		features, err := trainer.Normalize(h, record)
		require.NoError(t, err)
		output, err := trainer.Predict(h, features)
		require.NoError(t, err)
		label, err := trainer.Decode(h, output)
		require.NoError(t, err)
		if label == record[dataset.TransactionSchema.LabelIndex] {
			correct++
		}
	}
	return float64(correct) / float64(len(records))
}

func TestTrainer_LearnsSeparableData(t *testing.T) {
	trainer := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), testConfig())
	records := separable(300, 2)

	h, err := trainer.Fit(context.Background(), records)
	require.NoError(t, err)

	m, ok := h.(*Model)
	require.True(t, ok)
	assert.Contains(t, m.String(), "feedforward [")
	assert.GreaterOrEqual(t, m.Fold, 1)
	assert.LessOrEqual(t, m.Fold, 3)
	assert.Less(t, m.TrainingError, 0.5)

	assert.GreaterOrEqual(t, accuracy(t, trainer, h, separable(200, 3)), 0.9)
}

func TestTrainer_SeededFitsRepeat(t *testing.T) {
	records := separable(60, 4)
	config := testConfig()
	config.MaxEpochs = 20

	first, err := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(9)), config).
		Fit(context.Background(), records)
	require.NoError(t, err)
	second, err := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(9)), config).
		Fit(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, first.(*Model).Network, second.(*Model).Network)
	assert.Equal(t, first.(*Model).Fold, second.(*Model).Fold)
}

func TestTrainer_ReportsEveryEpoch(t *testing.T) {
	var mu sync.Mutex
	epochs := map[int]int{}

	config := testConfig()
	config.MaxEpochs = 7
	config.Folds = 2
	config.Progress = func(status EpochStatus) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, status.Folds)
		epochs[status.Fold]++
	}

	_, err := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), config).
		Fit(context.Background(), separable(40, 5))
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 7, 2: 7}, epochs)
}

func TestTrainer_PatienceStopsEarly(t *testing.T) {
	var mu sync.Mutex
	reported := 0

	config := testConfig()
	config.MaxEpochs = 500
	config.Folds = 1
	config.Patience = 1
	config.Progress = func(EpochStatus) {
		mu.Lock()
		reported++
		mu.Unlock()
	}

	// Every record is identical, so validation error stops improving at once.
	records := make([]model.TransformedRecord, 20)
	for i := range records {
		records[i] = transaction(1, "acme", "0")
	}
	_, err := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), config).
		Fit(context.Background(), records)
	require.NoError(t, err)

	assert.Less(t, reported, 500)
}

func TestTrainer_SmallInputs(t *testing.T) {
	trainer := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), testConfig())

	_, err := trainer.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	h, err := trainer.Fit(context.Background(), []model.TransformedRecord{transaction(1, "acme", "1")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, accuracy(t, trainer, h, []model.TransformedRecord{transaction(9, "other", "1")}),
		"a single class always decodes to that class")
}

func TestTrainer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), testConfig()).
		Fit(ctx, separable(30, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_ForeignHandle(t *testing.T) {
	trainer := NewTrainer(dataset.TransactionSchema, rand.New(rand.NewSource(1)))

	_, err := trainer.Normalize(foreignHandle{}, transaction(1, "acme", "0"))
	assert.ErrorIs(t, err, ErrForeignHandle)
	_, err = trainer.Predict(foreignHandle{}, nil)
	assert.ErrorIs(t, err, ErrForeignHandle)
	_, err = trainer.Decode(foreignHandle{}, nil)
	assert.ErrorIs(t, err, ErrForeignHandle)
	assert.ErrorIs(t, trainer.Save(foreignHandle{}, t.TempDir()+"/m.fdnn"), ErrForeignHandle)
}

type foreignHandle struct{}

func (foreignHandle) String() string { return "foreign" }

func TestNetwork_ComputeChecksInputSize(t *testing.T) {
	n, err := NewNetwork([]int{3, 2, 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out, err := n.Compute([]float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0] > -1 && out[0] < 1)

	_, err = n.Compute([]float64{1})
	assert.Error(t, err)

	_, err = NewNetwork([]int{3}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
	_, err = NewNetwork([]int{3, 0, 1}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestRPROP_ReducesError(t *testing.T) {
	n, err := NewNetwork([]int{2, 3, 1}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	inputs := [][]float64{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	ideals := [][]float64{{-1}, {-1}, {-1}, {1}}

	before := n.MeanSquaredError(inputs, ideals)
	trainer := newRPROP(n)
	for i := 0; i < 100; i++ {
		trainer.epoch(inputs, ideals)
	}
	after := n.MeanSquaredError(inputs, ideals)

	assert.Less(t, after, before)
	assert.Less(t, after, 0.1)
}
