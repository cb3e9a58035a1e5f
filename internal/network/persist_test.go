package network

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fittedModel(t *testing.T) (*Trainer, *Model) {
	t.Helper()
	config := testConfig()
	config.MaxEpochs = 10
	trainer := NewTrainerWithConfig(dataset.TransactionSchema, rand.New(rand.NewSource(1)), config)
	h, err := trainer.Fit(context.Background(), separable(50, 1))
	require.NoError(t, err)
	return trainer, h.(*Model)
}

func TestModelFile_RoundTrip(t *testing.T) {
	trainer, m := fittedModel(t)
	path := filepath.Join(t.TempDir(), "models", "fraud.fdnn")

	require.NoError(t, trainer.Save(m, path))

	loaded, err := trainer.Load(path)
	require.NoError(t, err)
	restored := loaded.(*Model)

	assert.Equal(t, m.Network, restored.Network)
	assert.Equal(t, m.Normalizer, restored.Normalizer)
	assert.Equal(t, m.String(), restored.String())

	record := transaction(7, "acme", "1")
	want, err := trainer.Normalize(m, record)
	require.NoError(t, err)
	got, err := trainer.Normalize(restored, record)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestModelFile_Corruption(t *testing.T) {
	_, m := fittedModel(t)
	data, err := EncodeModel(m)
	require.NoError(t, err)

	flip := func(i int) []byte {
		c := append([]byte(nil), data...)
		c[i] ^= 0xff
		return c
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: data[:5]},
		{name: "bad magic", data: flip(0)},
		{name: "unknown version", data: flip(len(modelMagic))},
		{name: "checksum mismatch", data: flip(len(data) - 1)},
		{name: "truncated payload", data: data[:len(data)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeModel(tt.data)
			assert.ErrorIs(t, err, ErrCorruptModel)
		})
	}
}

func TestModelFile_Missing(t *testing.T) {
	_, err := ReadModel(filepath.Join(t.TempDir(), "absent.fdnn"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestModelFile_OverwriteLeavesNoTempFiles(t *testing.T) {
	_, m := fittedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fraud.fdnn")

	require.NoError(t, WriteModel(path, m))
	require.NoError(t, WriteModel(path, m))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fraud.fdnn", entries[0].Name())
}
