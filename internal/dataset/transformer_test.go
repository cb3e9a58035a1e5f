package dataset

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUTCTransformer() *Transformer {
	return NewTransformerWithConfig(TransformerConfig{
		Location: time.UTC,
		RawWidth: TransactionSchema.RawWidth,
	})
}

func rawLine(address, timestamp string) string {
	return strings.Join([]string{"1", address, timestamp, "Acme", "NULL", "2", "buyer@example.com", "Brand", "shipped", "0"}, ",")
}

func TestTransformer_TransformLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    string
		wantErr error
	}{
		{
			name: "address and timestamp expand",
			line: rawLine("12.5.3.9", "2023-05-04T13:45:00"),
			want: "1,12,5,3,9,49500,4,4,5,Acme,NULL,2,buyer@example.com,Brand,shipped,0",
		},
		{
			name: "null address becomes sentinel",
			line: rawLine("NULL", "2023-05-04T13:45:00"),
			want: "1,0,0,0,0,49500,4,4,5,Acme,NULL,2,buyer@example.com,Brand,shipped,0",
		},
		{
			name: "null timestamp becomes sentinel regardless of case",
			line: rawLine("10.0.0.1", "null"),
			want: "1,10,0,0,1,0,0,0,0,Acme,NULL,2,buyer@example.com,Brand,shipped,0",
		},
		{
			name: "midnight on new year's day",
			line: rawLine("1.2.3.4", "2024-01-01 00:00:00"),
			want: "1,1,2,3,4,0,1,1,1,Acme,NULL,2,buyer@example.com,Brand,shipped,0",
		},
		{
			name: "fractional seconds are kept",
			line: rawLine("1.2.3.4", "2023-12-31 23:59:59.5"),
			want: "1,1,2,3,4,86399.5,31,0,12,Acme,NULL,2,buyer@example.com,Brand,shipped,0",
		},
		{
			name:    "two fields are malformed",
			line:    "a,b",
			wantErr: common.ErrMalformedRecord,
		},
		{
			name:    "wrong width is malformed",
			line:    "1,1.2.3.4,2023-05-04T13:45:00,Acme",
			wantErr: common.ErrMalformedRecord,
		},
		{
			name:    "three-part address is malformed",
			line:    rawLine("1.2.3", "2023-05-04T13:45:00"),
			wantErr: common.ErrMalformedRecord,
		},
		{
			name:    "five-part address is malformed",
			line:    rawLine("1.2.3.4.5", "2023-05-04T13:45:00"),
			wantErr: common.ErrMalformedRecord,
		},
		{
			name:    "empty address is malformed",
			line:    rawLine("", "2023-05-04T13:45:00"),
			wantErr: common.ErrMalformedRecord,
		},
		{
			name:    "epoch seconds are a parse error",
			line:    rawLine("1.2.3.4", "1683207900"),
			wantErr: common.ErrParse,
		},
		{
			name:    "garbage timestamp is a parse error",
			line:    rawLine("1.2.3.4", "not-a-date"),
			wantErr: common.ErrParse,
		},
		{
			name:    "impossible month is a parse error",
			line:    rawLine("1.2.3.4", "2023-13-45T10:00:00"),
			wantErr: common.ErrParse,
		},
	}

	transformer := newUTCTransformer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transformer.TransformLine(tt.line)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformer_TransformTwiceIsMalformed(t *testing.T) {
	transformer := newUTCTransformer()

	once, err := transformer.TransformLine(rawLine("12.5.3.9", "2023-05-04T13:45:00"))
	require.NoError(t, err)

	_, err = transformer.TransformLine(once)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestTransformer_DoesNotModifyInput(t *testing.T) {
	raw := model.ParseRawRecord(rawLine("12.5.3.9", "2023-05-04T13:45:00"))
	before := append(model.RawRecord(nil), raw...)

	_, err := newUTCTransformer().Transform(raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw)
}

func TestTransformer_UnboundedWidth(t *testing.T) {
	transformer := NewTransformerWithConfig(TransformerConfig{Location: time.UTC})

	got, err := transformer.TransformLine("x,1.2.3.4,NULL")
	require.NoError(t, err)
	assert.Equal(t, "x,1,2,3,4,0,0,0,0", got)

	_, err = transformer.TransformLine("x,1.2,NULL")
	assert.ErrorIs(t, err, common.ErrMalformedRecord)

	_, err = transformer.TransformLine("x,1.2")
	assert.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestTransformer_ConvertsOffsetsToLocation(t *testing.T) {
	transformer := newUTCTransformer()

	got, err := transformer.TransformLine(rawLine("1.1.1.1", "2023-05-04T23:30:00-02:00"))
	require.NoError(t, err)

	record := model.ParseTransformedRecord(got)
	// 23:30 at -02:00 is 01:30 UTC on the following day, a Friday.
	assert.Equal(t, []string{"5400", "5", "5", "5"}, []string(record[5:9]))
}

func TestProperty_Transformer(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	transformer := newUTCTransformer()

	octet := gen.IntRange(0, 255).Map(strconv.Itoa)

	properties.Property("non-null address keeps its digits with dots replaced", prop.ForAll(
		func(a, b, c, d string) bool {
			address := strings.Join([]string{a, b, c, d}, ".")
			record, err := transformer.Transform(model.ParseRawRecord(rawLine(address, "NULL")))
			if err != nil {
				return false
			}
			expanded := strings.Join(record[1:5], ",")
			return !strings.Contains(expanded, ".") && expanded == strings.ReplaceAll(address, ".", ",")
		},
		octet, octet, octet, octet,
	))

	properties.Property("null address in any case is the sentinel", prop.ForAll(
		func(marker string) bool {
			record, err := transformer.Transform(model.ParseRawRecord(rawLine(marker, "NULL")))
			if err != nil {
				return false
			}
			return strings.Join(record[1:5], ",") == Sentinel
		},
		gen.OneConstOf("NULL", "null", "Null", "nUlL", "NuLl"),
	))

	properties.Property("timestamp components stay in range", prop.ForAll(
		func(unix int64) bool {
			ts := time.Unix(unix, 0).UTC().Format("2006-01-02T15:04:05")
			record, err := transformer.Transform(model.ParseRawRecord(rawLine("1.1.1.1", ts)))
			if err != nil {
				return false
			}
			seconds, err1 := strconv.ParseFloat(record[5], 64)
			day, err2 := strconv.Atoi(record[6])
			weekday, err3 := strconv.Atoi(record[7])
			month, err4 := strconv.Atoi(record[8])
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				return false
			}
			return seconds >= 0 && seconds < 86400 &&
				day >= 1 && day <= 31 &&
				weekday >= 0 && weekday <= 6 &&
				month >= 1 && month <= 12
		},
		gen.Int64Range(0, 4102444800), // 1970 through 2099
	))

	properties.Property("transformed records always have sixteen columns", prop.ForAll(
		func(unix int64, a, b, c, d string) bool {
			ts := time.Unix(unix, 0).UTC().Format("2006-01-02 15:04:05")
			address := strings.Join([]string{a, b, c, d}, ".")
			record, err := transformer.Transform(model.ParseRawRecord(rawLine(address, ts)))
			return err == nil && len(record) == TransactionSchema.Width()
		},
		gen.Int64Range(0, 4102444800),
		octet, octet, octet, octet,
	))

	properties.TestingRun(t)
}
