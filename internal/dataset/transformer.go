package dataset

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/araddon/dateparse"
)

// NullMarker marks a missing value in the raw export. It is matched case-insensitively.
const NullMarker = "NULL"

// Sentinel replaces any NULL field that would otherwise expand to four values.
const Sentinel = "0,0,0,0"

// minRawFields is the smallest record that still contains both expanded fields.
const minRawFields = TimestampField + 1

// expandedParts is the number of columns the address and the timestamp each
// expand into. A transformed record is therefore 2*(expandedParts-1) columns
// wider than its raw record.
const expandedParts = 4

var errEpochTimestamp = errors.New("epoch seconds are not a date-time")

// TransformerConfig holds configuration options for the record transformer.
type TransformerConfig struct {
	// Location is the zone timestamps are interpreted in and converted to.
	Location *time.Location
	// RawWidth is the required field count of a raw record; 0 accepts any
	// record with at least three fields.
	RawWidth int
}

// DefaultTransformerConfig returns the configuration for the transaction export.
func DefaultTransformerConfig() TransformerConfig {
	return TransformerConfig{
		Location: time.Local,
		RawWidth: TransactionSchema.RawWidth,
	}
}

// Transformer expands the address and timestamp fields of raw records.
type Transformer struct {
	location *time.Location
	rawWidth int
}

// NewTransformer creates a transformer with the default configuration.
func NewTransformer() *Transformer {
	return NewTransformerWithConfig(DefaultTransformerConfig())
}

// NewTransformerWithConfig creates a transformer with custom configuration.
func NewTransformerWithConfig(config TransformerConfig) *Transformer {
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}
	return &Transformer{
		location: loc,
		rawWidth: config.RawWidth,
	}
}

// Transform expands one raw record. It never modifies raw.
func (t *Transformer) Transform(raw model.RawRecord) (model.TransformedRecord, error) {
	if len(raw) < minRawFields {
		return nil, common.NewMalformedRecordError("expected at least %d fields, got %d", minRawFields, len(raw))
	}
	if t.rawWidth > 0 && len(raw) != t.rawWidth {
		return nil, common.NewMalformedRecordError("expected %d fields, got %d", t.rawWidth, len(raw))
	}

	fields := make([]string, len(raw))
	copy(fields, raw)

	address := expandAddress(raw[AddressField])
	if parts := strings.Count(address, model.Delimiter) + 1; parts != expandedParts {
		return nil, common.NewMalformedRecordError("address %q expands to %d parts, expected %d",
			raw[AddressField], parts, expandedParts)
	}
	fields[AddressField] = address

	timestamp, err := t.expandTimestamp(raw[TimestampField])
	if err != nil {
		return nil, err
	}
	fields[TimestampField] = timestamp

	// Re-split so the expanded sub-values become columns of their own.
	record := model.ParseTransformedRecord(strings.Join(fields, model.Delimiter))
	if want := len(raw) + 2*(expandedParts-1); len(record) != want {
		return nil, common.NewMalformedRecordError("expected %d transformed fields, got %d", want, len(record))
	}
	return record, nil
}

// TransformLine transforms one delimited line and returns the re-joined line.
func (t *Transformer) TransformLine(line string) (string, error) {
	record, err := t.Transform(model.ParseRawRecord(line))
	if err != nil {
		return "", err
	}
	return record.Line(), nil
}

func isNull(value string) bool {
	return strings.EqualFold(value, NullMarker)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func expandAddress(value string) string {
	if isNull(value) {
		return Sentinel
	}
	return strings.ReplaceAll(value, ".", ",")
}

func (t *Transformer) expandTimestamp(value string) (string, error) {
	if isNull(value) {
		return Sentinel, nil
	}

	trimmed := strings.TrimSpace(value)
	if isDigits(trimmed) {
		return "", common.NewParseError(TimestampField, value, errEpochTimestamp)
	}

	parsed, err := dateparse.ParseIn(trimmed, t.location)
	if err != nil {
		return "", common.NewParseError(TimestampField, value, err)
	}
	parsed = parsed.In(t.location)

	hour, minute, second := parsed.Clock()
	seconds := float64(hour*3600+minute*60+second) + float64(parsed.Nanosecond())/float64(time.Second)

	return strings.Join([]string{
		strconv.FormatFloat(seconds, 'f', -1, 64),
		strconv.Itoa(parsed.Day()),
		strconv.Itoa(int(parsed.Weekday())),
		strconv.Itoa(int(parsed.Month())),
	}, model.Delimiter), nil
}
