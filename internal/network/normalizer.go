package network

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spaolacci/murmur3"
)

// Normalized range of every encoded value.
const (
	normLow  = -1.0
	normHigh = 1.0
)

// ErrNoClasses indicates the training data carried no output labels.
var ErrNoClasses = errors.New("training data has no output classes")

// FieldEncoder maps one column to one or more normalized inputs.
type FieldEncoder struct {
	Name        string             `json:"name"`
	Type        dataset.ColumnType `json:"type"`
	Categories  []string           `json:"categories,omitempty"`
	Index       int                `json:"index"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	HashBuckets int                `json:"hash_buckets,omitempty"`
}

// Width returns the number of normalized values the column produces.
func (f *FieldEncoder) Width() int {
	if f.Type == dataset.ColumnNominal {
		return len(f.Categories) + f.HashBuckets
	}
	return 1
}

// Normalizer converts transformed records to network inputs and decodes outputs.
// Continuous columns are scaled from their observed range to [-1,1]; nominal
// columns are one-of-n encoded over their most frequent values, with the
// remaining values hashed into a fixed number of buckets.
type Normalizer struct {
	Inputs []FieldEncoder `json:"inputs"`
	Output FieldEncoder   `json:"output"`
}

// NormalizerConfig bounds the size of nominal encodings.
type NormalizerConfig struct {
	MaxCategories int
	HashBuckets   int
}

// Analyze scans records and derives the ranges and vocabularies of every column.
func Analyze(schema dataset.Schema, records []model.TransformedRecord, config NormalizerConfig) (*Normalizer, error) {
	n := &Normalizer{}

	for _, col := range schema.Inputs() {
		encoder := FieldEncoder{Name: col.Name, Index: col.Index, Type: col.Type}
		switch col.Type {
		case dataset.ColumnNominal:
			encoder.Categories = topCategories(records, col.Index, config.MaxCategories)
			encoder.HashBuckets = config.HashBuckets
		default:
			lo, hi, err := valueRange(records, col)
			if err != nil {
				return nil, err
			}
			encoder.Min, encoder.Max = lo, hi
		}
		n.Inputs = append(n.Inputs, encoder)
	}

	classes := topCategories(records, schema.LabelIndex, 0)
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	sort.Strings(classes)
	n.Output = FieldEncoder{
		Name:       schema.Columns[schema.LabelIndex].Name,
		Index:      schema.LabelIndex,
		Type:       dataset.ColumnNominal,
		Categories: classes,
	}

	return n, nil
}

// InputSize returns the length of every normalized input vector.
func (n *Normalizer) InputSize() int {
	size := 0
	for i := range n.Inputs {
		size += n.Inputs[i].Width()
	}
	return size
}

// OutputSize returns the length of every output vector.
func (n *Normalizer) OutputSize() int {
	return len(n.Output.Categories)
}

// NormalizeInput encodes the input columns of record.
func (n *Normalizer) NormalizeInput(record model.TransformedRecord) ([]float64, error) {
	vector := make([]float64, 0, n.InputSize())
	for i := range n.Inputs {
		encoder := &n.Inputs[i]
		value, ok := record.Field(encoder.Index)
		if !ok {
			return nil, common.NewMalformedRecordError("column %s (%d) missing from %d fields", encoder.Name, encoder.Index, len(record))
		}

		if encoder.Type == dataset.ColumnNominal {
			vector = append(vector, encoder.oneOfN(value)...)
			continue
		}

		number, err := parseNumber(encoder.Type, encoder.Index, value)
		if err != nil {
			return nil, err
		}
		vector = append(vector, scale(number, encoder.Min, encoder.Max))
	}
	return vector, nil
}

// NormalizeOutput encodes the label of record as the ideal output vector.
func (n *Normalizer) NormalizeOutput(record model.TransformedRecord) ([]float64, error) {
	label, ok := record.Field(n.Output.Index)
	if !ok {
		return nil, common.NewMalformedRecordError("label column %d missing from %d fields", n.Output.Index, len(record))
	}
	return n.Output.oneOfN(label), nil
}

// DenormalizeOutput decodes an output vector to the most likely class label.
func (n *Normalizer) DenormalizeOutput(output []float64) (string, error) {
	if len(output) != n.OutputSize() {
		return "", fmt.Errorf("output vector has %d values, expected %d", len(output), n.OutputSize())
	}
	best := 0
	for i := 1; i < len(output); i++ {
		if output[i] > output[best] {
			best = i
		}
	}
	return n.Output.Categories[best], nil
}

func (f *FieldEncoder) oneOfN(value string) []float64 {
	encoded := make([]float64, f.Width())
	for i := range encoded {
		encoded[i] = normLow
	}
	for i, category := range f.Categories {
		if category == value {
			encoded[i] = normHigh
			return encoded
		}
	}
	if f.HashBuckets > 0 {
		bucket := int(murmur3.Sum32([]byte(value)) % uint32(f.HashBuckets))
		encoded[len(f.Categories)+bucket] = normHigh
	}
	return encoded
}

func scale(value, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (value-lo)/(hi-lo)*(normHigh-normLow) + normLow
}

func parseNumber(columnType dataset.ColumnType, index int, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, dataset.NullMarker) {
		return 0, nil
	}

	if columnType == dataset.ColumnMonetary {
		amount, err := decimal.NewFromString(strings.TrimPrefix(value, "$"))
		if err != nil {
			return 0, common.NewParseError(index, value, err)
		}
		return amount.InexactFloat64(), nil
	}

	number, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		if err == nil {
			err = fmt.Errorf("not a finite number")
		}
		return 0, common.NewParseError(index, value, err)
	}
	return number, nil
}

func valueRange(records []model.TransformedRecord, col dataset.Column) (float64, float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for line, record := range records {
		value, ok := record.Field(col.Index)
		if !ok {
			return 0, 0, common.WithLine(common.NewMalformedRecordError("column %s missing", col.Name), line+1)
		}
		number, err := parseNumber(col.Type, col.Index, value)
		if err != nil {
			return 0, 0, common.WithLine(err, line+1)
		}
		lo = math.Min(lo, number)
		hi = math.Max(hi, number)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}
	return lo, hi, nil
}

// topCategories returns up to limit values of column index ordered by
// descending frequency, ties broken alphabetically. A limit of 0 keeps all.
func topCategories(records []model.TransformedRecord, index, limit int) []string {
	counts := make(map[string]int)
	for _, record := range records {
		if value, ok := record.Field(index); ok {
			counts[value]++
		}
	}

	categories := make([]string, 0, len(counts))
	for value := range counts {
		categories = append(categories, value)
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})

	if limit > 0 && len(categories) > limit {
		categories = categories[:limit]
	}
	return categories
}
