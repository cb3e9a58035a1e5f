package dataset

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRawFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

func newTestStore(seed int64) *Store {
	transformer := NewTransformerWithConfig(TransformerConfig{Location: time.UTC, RawWidth: TransactionSchema.RawWidth})
	return NewStore(transformer, NewSplitter(), TransactionSchema, rand.New(rand.NewSource(seed)))
}

func sampleLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		label := "0"
		if i%4 == 0 {
			label = "1"
		}
		lines[i] = strings.Join([]string{
			"id" + string(rune('a'+i%26)), "10.0.0.1", "2023-05-04T13:45:00", "Acme", "19.99", "1",
			"buyer@example.com", "Brand", "shipped", label,
		}, ",")
	}
	return lines
}

func TestDerivedPath(t *testing.T) {
	assert.Equal(t, "data/orders-transformed.csv", DerivedPath("data/orders.csv", TransformedSuffix))
	assert.Equal(t, "data/orders-testData.csv", DerivedPath("data/orders.csv", EvaluationSuffix))
	assert.Equal(t, "orders-trainingData.csv", DerivedPath("orders", TrainingSuffix))
}

func TestStore_Prepare(t *testing.T) {
	ctx := context.Background()

	t.Run("builds derived files and caches in memory", func(t *testing.T) {
		source := writeRawFile(t, sampleLines(40)...)
		store := newTestStore(3)

		first, err := store.Prepare(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, 40, first.Len())
		assert.Equal(t, source, first.Source)

		for _, suffix := range []string{TransformedSuffix, TrainingSuffix, EvaluationSuffix} {
			assert.FileExists(t, DerivedPath(source, suffix))
		}

		second, err := store.Prepare(ctx, source)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("reuses partition files from an earlier run", func(t *testing.T) {
		source := writeRawFile(t, sampleLines(40)...)

		first, err := newTestStore(3).Prepare(ctx, source)
		require.NoError(t, err)

		// A different seed would split differently if the files were rebuilt.
		second, err := newTestStore(1234).Prepare(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, first.Training, second.Training)
		assert.Equal(t, first.Evaluation, second.Evaluation)
	})

	t.Run("reuses an existing transformed file", func(t *testing.T) {
		source := writeRawFile(t, sampleLines(4)...)
		transformed := "x,1,2,3,4,0,1,1,1,Acme,5,1,e,b,s,0\n"
		require.NoError(t, os.WriteFile(DerivedPath(source, TransformedSuffix), []byte(transformed), 0600))

		dataset, err := newTestStore(3).Prepare(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, 1, dataset.Len())
	})

	t.Run("parse error aborts without writing derived files", func(t *testing.T) {
		lines := sampleLines(3)
		lines = append(lines, "9,1.1.1.1,yesterday-ish,Acme,1,1,e,b,s,0")
		source := writeRawFile(t, lines...)

		_, err := newTestStore(3).Prepare(ctx, source)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrParse)
		assert.Contains(t, err.Error(), "line 4")
		assert.NoFileExists(t, DerivedPath(source, TransformedSuffix))
		assert.NoFileExists(t, DerivedPath(source, TrainingSuffix))
	})

	t.Run("misshapen address aborts without writing derived files", func(t *testing.T) {
		lines := sampleLines(5)
		lines = append(lines, "9,1.2.3.4.5,2023-05-04T13:45:00,Acme,1,1,e,b,s,0")
		source := writeRawFile(t, lines...)

		_, err := newTestStore(3).Prepare(ctx, source)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrMalformedRecord)
		assert.Contains(t, err.Error(), "line 6")
		for _, suffix := range []string{TransformedSuffix, TrainingSuffix, EvaluationSuffix} {
			assert.NoFileExists(t, DerivedPath(source, suffix))
		}
	})

	t.Run("malformed transformed cache is rejected", func(t *testing.T) {
		source := writeRawFile(t, sampleLines(2)...)
		require.NoError(t, os.WriteFile(DerivedPath(source, TransformedSuffix), []byte("a,b,c\n"), 0600))

		_, err := newTestStore(3).Prepare(ctx, source)
		assert.ErrorIs(t, err, common.ErrMalformedRecord)
	})

	t.Run("missing source file", func(t *testing.T) {
		_, err := newTestStore(3).Prepare(ctx, filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		lines := sampleLines(3)
		source := writeRawFile(t, lines[0], "", lines[1], "   ", lines[2])

		dataset, err := newTestStore(3).Prepare(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, 3, dataset.Len())
	})
}

func TestStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	source := writeRawFile(t, sampleLines(10)...)
	store := newTestStore(5)

	first, err := store.Prepare(ctx, source)
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(source))
	for _, suffix := range []string{TransformedSuffix, TrainingSuffix, EvaluationSuffix} {
		assert.NoFileExists(t, DerivedPath(source, suffix))
	}

	second, err := store.Prepare(ctx, source)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Len(), second.Len())
}

func TestWriteRecords_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("old,content\nmore\n"), 0600))

	records, err := TransformReader(context.Background(), newUTCTransformer(),
		strings.NewReader(rawLine("1.2.3.4", "NULL")+"\n"))
	require.NoError(t, err)
	require.NoError(t, WriteRecords(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, records[0].Line()+"\n", string(data))
}
